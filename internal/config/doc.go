// Package config loads dailystrip settings.
//
// # Overview
//
// Settings live in ~/.config/dailystrip/config.toml by default. A path
// ending in .yaml or .yml is parsed as YAML instead. A missing file is not
// an error: Default() is used and dailystrip runs out of the box.
//
// # Resolution Order
//
//  1. Built-in defaults
//  2. Values from the config file, when present and non-empty
//  3. DAILYSTRIP_SOURCE_URL, DAILYSTRIP_INTERVAL and DAILYSTRIP_API_BIND
//
// The merged result is validated before Load returns.
//
// # TOML Format
//
//	source_url = "https://xkcd.com/"
//	request_timeout = "30s"
//	fetch_automatically = true
//	fetch_interval = "1h"
//	# fetch_cron = "0 7 * * *"
//	disclaimer_acknowledged = false
//	archive_dir = "~/Pictures/dailystrip"
//	api_bind = "127.0.0.1:7488"
//	log_level = "info"
//	log_file = "~/.local/state/dailystrip/dailystrip.log"
//
// fetch_cron takes precedence over fetch_interval. Intervals shorter than
// schedule.MinInterval are rejected. An empty log_file logs to stderr.
//
// # Schedule Mapping
//
// Config.Schedule converts the fetch settings into a schedule.Config:
// disabled when fetch_automatically is false, cron-driven when fetch_cron
// is set, interval-driven otherwise.
package config
