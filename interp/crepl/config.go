package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// yamlConf is an application configuration read from a YAML file. It
// implements schuko.Configuration.
type yamlConf map[string]interface{}

// loadConfig reads a YAML configuration file. An empty filename yields an
// empty configuration.
func loadConfig(filename string) (yamlConf, error) {
	conf := yamlConf{}
	if filename == "" {
		return conf, nil
	}
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot read configuration: %w", err)
	}
	var doc map[string]interface{}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("cannot parse configuration %s: %w", filename, err)
	}
	conf.flatten("", doc)
	return conf, nil
}

func (c yamlConf) flatten(prefix string, m map[string]interface{}) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]interface{}); ok {
			c.flatten(key, sub)
			continue
		}
		c[key] = v
	}
}

// InitDefaults sets the tracing adapter, unless the file names one.
func (c yamlConf) InitDefaults() {
	if _, ok := c["tracing.adapter"]; !ok {
		c["tracing.adapter"] = "go"
	}
}

// IsSet is a predicate: is key present?
func (c yamlConf) IsSet(key string) bool {
	_, ok := c[key]
	return ok
}

func (c yamlConf) GetString(key string) string {
	v, ok := c[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func (c yamlConf) GetInt(key string) int {
	switch v := c[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case uint64:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, err := strconv.ParseInt(strings.ReplaceAll(v, "_", ""), 0, 64)
		if err != nil {
			tracer().Errorf("configuration key %s: %q is not an integer", key, v)
		}
		return int(n)
	}
	return 0
}

func (c yamlConf) GetBool(key string) bool {
	switch v := c[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return false
}

func (c yamlConf) IsInteractive() bool {
	return c.GetBool("interactive")
}
