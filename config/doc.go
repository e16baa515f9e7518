// Package config loads the simulator configuration: a JSON file read
// through viper over a complete set of defaults, so a missing file or a
// partial file both yield a runnable system.
package config
