// Package config provides configuration structures and utilities for
// webharvest. It defines the global scraping options populated from
// CLI flags, plus per-site overrides loaded from the optional
// .webharvest YAML file.
package config
