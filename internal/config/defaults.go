package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
		},
		Routing: RoutingConfig{
			DefaultCapabilityEnv: "TOOLROUTE_DEFAULT_CAPABILITY",
			BrowserMarkers:       defaultBrowserMarkers(),
			SearchMarkers:        defaultSearchMarkers(),
			FuzzyMinScore:        0,
		},
		Extraction: ExtractionConfig{
			WindowBefore:    10,
			WindowAfter:     25,
			MaxResults:      10,
			MinContentNodes: 10,
		},
		Catalog: CatalogConfig{
			DBPath: "~/.toolroute/registry.db",
		},
		Browser: BrowserConfig{
			ProfileDir:     "~/.toolroute/browser",
			Headless:       true,
			TimeoutSeconds: 30,
		},
		Metrics: MetricsConfig{
			Enabled:  false,
			Endpoint: "/metrics",
		},
	}
}

func defaultBrowserMarkers() []string {
	return []string{"playwright", "browser", "puppeteer", "chromedp"}
}

func defaultSearchMarkers() []string {
	return []string{"search", "serp", "brave", "google-search"}
}
