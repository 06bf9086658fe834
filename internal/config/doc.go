// Package config loads slotkeeper's configuration: business hours, the
// Google OAuth client, the store backend and server settings.
//
// Values are layered: built-in defaults, an optional YAML file, a .env file
// and finally environment variables. Command-line flags are applied on top
// by the cmd package.
package config
