// Package pkgconfig provides a small abstraction for reading configuration values.
//
// The application depends on the Config interface; Viper implements it over
// environment variables with per-key defaults.
package pkgconfig
