package config

import "time"

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Store: StoreConfig{
			Driver:    "postgres",
			Retention: 90 * 24 * time.Hour,
		},
		API: APIConfig{
			SearchEngine:       "google",
			ScrapeEngine:       "playwright",
			Country:            "us",
			Language:           "en",
			SearchLimit:        10,
			BulkTimeout:        30 * time.Second,
			ExploratoryTimeout: 60 * time.Second,
		},
		RateLimits: RateLimitConfig{
			Search: time.Second,
			Scrape: 2 * time.Second,
			Scope:  10 * time.Second,
		},
		Refresh: RefreshConfig{
			PerAgeRange:      true,
			MinContentLength: 100,
			MinSnippetLength: 50,
			HealthCheck:      true,
		},
		Scheduler: SchedulerConfig{Interval: 24 * time.Hour, Timezone: defaultTimezone},
		AgeRanges: []string{
			"0-1_months", "1-3_months", "3-6_months", "6-9_months", "9-12_months",
			"12-18_months", "18-24_months", "24-30_months", "30-36_months",
		},
		Topics: defaultTopics(),
	}
}

func defaultTopics() []TopicConfig {
	medical := []string{"healthychildren.org", "aap.org", "cdc.gov", "nih.gov", "mayoclinic.org", "who.int", "nhs.uk"}

	return []TopicConfig{
		{
			Key:     "feeding_nutrition",
			Label:   "Feeding & Nutrition",
			Queries: []string{"baby feeding guide {age}", "infant nutrition {age} solid foods"},
			TrustedSources: append([]string{
				"eatright.org", "kellymom.com", "llli.org",
			}, medical...),
		},
		{
			Key:     "sleep_patterns",
			Label:   "Sleep Patterns",
			Queries: []string{"baby sleep schedule {age}", "safe sleep infant {age}"},
			TrustedSources: append([]string{
				"sleepfoundation.org", "safetosleep.nichd.nih.gov",
			}, medical...),
		},
		{
			Key:     "developmental_milestones",
			Label:   "Developmental Milestones",
			Queries: []string{"developmental milestones {age}", "baby development {age} what to expect"},
			TrustedSources: append([]string{
				"zerotothree.org", "pathways.org",
			}, medical...),
		},
		{
			Key:            "health_wellness",
			Label:          "Health & Wellness",
			Queries:        []string{"baby health checkup {age}", "infant vaccination schedule {age}"},
			TrustedSources: append([]string{"kidshealth.org", "immunize.org"}, medical...),
		},
		{
			Key:            "behavior_discipline",
			Label:          "Behavior & Discipline",
			Queries:        []string{"toddler behavior tips {age}", "positive parenting {age}"},
			TrustedSources: append([]string{"zerotothree.org", "childmind.org"}, medical...),
		},
		{
			Key:            "play_learning",
			Label:          "Play & Learning",
			Queries:        []string{"baby play activities {age}", "early learning games {age}"},
			TrustedSources: append([]string{"zerotothree.org", "naeyc.org", "pbs.org"}, medical...),
		},
		{
			Key:            "safety_childproofing",
			Label:          "Safety & Childproofing",
			Queries:        []string{"baby proofing checklist {age}", "infant safety tips {age}"},
			TrustedSources: append([]string{"safekids.org", "cpsc.gov", "nhtsa.gov"}, medical...),
		},
		{
			Key:            "language_communication",
			Label:          "Language & Communication",
			Queries:        []string{"baby language development {age}", "talking to baby {age}"},
			TrustedSources: append([]string{"asha.org", "zerotothree.org"}, medical...),
		},
	}
}
