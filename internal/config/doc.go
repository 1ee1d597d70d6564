// Package config loads bore configuration.
//
// The configuration is stored in bore.json, bore.yaml or bore.yml in the
// project directory. YAML files are converted to JSON before decoding, so
// both formats share one schema.
//
// # Configuration File Structure
//
//	{
//	  "delay": "1ms",
//	  "timeout": "5s",
//	  "reactions": "sync",
//	  "policy": "buckets",
//	  "fixtureId": "bore-fixture",
//	  "forceOpenShadow": true,
//	  "log": {"level": "info", "format": "text"},
//	  "metrics": {"namespace": "bore"},
//	  "server": {"addr": ":7357", "readTimeout": "10s", "maxBody": 1048576, "waitTimeout": "30s"},
//	  "source": {
//	    "httpTimeout": "30s",
//	    "s3": {"region": "us-east-1", "endpoint": "http://localhost:9000", "pathStyle": true}
//	  }
//	}
//
// # Overrides
//
// Values are applied in this order: defaults, the file, BORE_* environment
// variables (ApplyEnv) and a JSON merge patch (ApplyPatch). Validate
// should run last.
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	arena := bore.New(cfg.ArenaOptions()...)
package config
