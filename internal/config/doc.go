// Package config provides configuration structures and utilities for bizscan.
// It defines the fetch settings, the priority path list and keyword
// vocabulary, report output preferences, and the optional YAML file that
// overrides them.
package config
