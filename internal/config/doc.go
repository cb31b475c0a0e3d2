// Package config provides configuration structures and utilities for
// fedsearch. It defines the search budgets, pool sizes and politeness
// limits, report preferences, and the YAML file that carries per-source
// overrides and the domain alias manifest location.
package config
