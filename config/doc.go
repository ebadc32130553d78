// Package config loads the gateway configuration.
//
// Configuration is assembled in layers: built-in defaults, then each file passed to
// AddLayer in order, then FORMGW_* environment variables. JSON and YAML layers are
// accepted and merged as maps, so a layer only needs the keys it changes. Arrays
// such as the handler list are replaced wholesale, never appended.
//
// Example layer:
//
//	{
//	  "nats": {"enabled": true, "urls": ["nats://localhost:4222"]},
//	  "store": {"backend": "nats"},
//	  "handlers": [
//	    {"name": "base", "factory": "base-multiplier"},
//	    {"name": "audit", "url": "http://audit:8080", "stage": "after"}
//	  ]
//	}
//
// Handler order in the list is the order in which fragments and event results are
// merged.
package config
