/*
Package config loads graphbuilder configuration files.

# Overview

Config wraps a decoded YAML or JSON document and provides typed accessors
that fall back to a default when a key is missing or holds the wrong type.
Keys are dotted paths into nested sections:

	cfg, err := config.FromFile("graphbuilder.yaml")
	if err != nil {
	    return err
	}
	targets := cfg.StringSlice("codegen.targets", []string{"python"})
	debounce := cfg.Duration("watch.debounce", 200*time.Millisecond)

Durations accept Go duration strings ("250ms") or plain numbers, read as
milliseconds. Environment references (${HOME}) in files are expanded
before parsing.

# Settings

Settings is the typed, validated view the CLI runs on. SettingsFrom layers
a Config over DefaultSettings:

	settings, err := config.Load("graphbuilder.yaml")
	in, err := settings.Inferrer()

# Thread Safety

Config and Settings are values and safe for concurrent reads.
*/
package config
