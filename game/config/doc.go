// Package config holds the runtime settings of the Parqués server.
//
// Settings come from three layers, later ones winning: the built-in
// defaults, an optional JSON file, and command-line flags (which themselves
// fall back to environment variables). Every layer is checked with struct
// tag validation before the server starts.
//
// File Format:
//
//	{
//	  "listen": ":5000",
//	  "http": ":8080",
//	  "send_buffer": 64,
//	  "write_timeout": "5s",
//	  "max_frame": 65536,
//	  "log_level": "info",
//	  "ngrok": false
//	}
//
// Durations are Go duration strings. Omitted keys keep their defaults.
package config
