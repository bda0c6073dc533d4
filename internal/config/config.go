// Package config loads the catalogue of MCP servers the CLI can talk to.
//
// The file may be YAML, JSON or TOML. Environment variables written as
// ${VAR_NAME} are expanded before parsing:
//
//	default_server: local
//	response_timeout: 10s
//	servers:
//	  local:
//	    connection_type: process
//	    process:
//	      command_line: php
//	      additional_arguments: /srv/mcp/server.php
//	      env: ["API_KEY=${API_KEY}"]
//	  remote:
//	    connection_type: socket
//	    socket: {host: localhost, port: 3000, timeout: 30s}
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/thellimist/mcpclient/internal/mcp"
	"github.com/thellimist/mcpclient/internal/shellwords"
)

// EnvPath names the environment variable consulted by Locate.
const EnvPath = "MCPCLIENT_CONFIG"

// DefaultFiles are tried in order, relative to the working directory, when
// no path is given.
var DefaultFiles = []string{"mcpconfig.yaml", "mcpconfig.yml", "mcpconfig.json", "mcpconfig.toml"}

// ErrNotFound is returned by Locate when no configuration file exists.
var ErrNotFound = errors.New("config: no configuration file found")

// ConnectionType selects the transport of a server.
type ConnectionType string

const (
	ConnectionProcess ConnectionType = "process"
	ConnectionSocket  ConnectionType = "socket"
)

// Values used when a server entry leaves them out.
const (
	DefaultCommandLine = "php"
	DefaultSocketHost  = "localhost"
	DefaultSocketPort  = 3000
)

// File is the parsed configuration file.
type File struct {
	DefaultServer   string                   `yaml:"default_server" toml:"default_server"`
	ProtocolVersion string                   `yaml:"protocol_version" toml:"protocol_version"`
	ResponseTimeout Duration                 `yaml:"response_timeout" toml:"response_timeout"`
	ClientInfo      ClientInfo               `yaml:"client_info" toml:"client_info"`
	Servers         map[string]*ServerConfig `yaml:"servers" toml:"servers"`

	// Path is the file the configuration was read from.
	Path string `yaml:"-" toml:"-"`
}

// ClientInfo is the identity sent to servers during the handshake.
type ClientInfo struct {
	Name    string `yaml:"name" toml:"name"`
	Version string `yaml:"version" toml:"version"`
}

// ServerConfig describes one server entry.
type ServerConfig struct {
	Name           string         `yaml:"name" toml:"name"`
	Description    string         `yaml:"description" toml:"description"`
	ConnectionType ConnectionType `yaml:"connection_type" toml:"connection_type"`
	Process        ProcessConfig  `yaml:"process" toml:"process"`
	Socket         SocketConfig   `yaml:"socket" toml:"socket"`
	Defaults       Defaults       `yaml:"defaults" toml:"defaults"`

	// Key is the entry's key under servers.
	Key string `yaml:"-" toml:"-"`

	file *File
}

// ProcessConfig starts the server as a child process.
type ProcessConfig struct {
	// CommandLine is the program and its leading arguments, split with
	// shell quoting rules.
	CommandLine string `yaml:"command_line" toml:"command_line"`
	// AdditionalArguments is passed as a single final argument, usually
	// the server script.
	AdditionalArguments string   `yaml:"additional_arguments" toml:"additional_arguments"`
	Env                 []string `yaml:"env" toml:"env"`
	Dir                 string   `yaml:"dir" toml:"dir"`
}

// SocketConfig connects to a server over TCP.
type SocketConfig struct {
	Host    string   `yaml:"host" toml:"host"`
	Port    uint16   `yaml:"port" toml:"port"`
	Timeout Duration `yaml:"timeout" toml:"timeout"`
}

// Defaults holds tool arguments applied before user input.
type Defaults struct {
	Global map[string]any            `yaml:"global" toml:"global"`
	Tools  map[string]map[string]any `yaml:"tools" toml:"tools"`
}

// ServerSummary is a listing entry for the servers command.
type ServerSummary struct {
	Key         string
	Name        string
	Description string
	Type        ConnectionType
	Target      string
	Default     bool
}

// Locate resolves the configuration path: explicit wins, then $MCPCLIENT_CONFIG,
// then the first of DefaultFiles that exists.
func Locate(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if env := os.Getenv(EnvPath); env != "" {
		return env, nil
	}
	for _, name := range DefaultFiles {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w (tried --config, $%s, %s)", ErrNotFound, EnvPath, strings.Join(DefaultFiles, ", "))
}

// Load reads, expands, parses and validates the file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	f, err := Parse(data, formatOf(path))
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	f.Path = path
	return f, nil
}

// Format is a configuration file syntax.
type Format int

const (
	FormatYAML Format = iota // also used for JSON
	FormatTOML
)

func formatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// Parse decodes configuration data and validates it.
func Parse(data []byte, format Format) (*File, error) {
	expanded := expandEnvVars(string(data))

	var f File
	switch format {
	case FormatTOML:
		if _, err := toml.Decode(expanded, &f); err != nil {
			return nil, fmt.Errorf("parsing toml: %w", err)
		}
	default:
		if err := yaml.Unmarshal([]byte(expanded), &f); err != nil {
			return nil, fmt.Errorf("parsing: %w", err)
		}
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

var envVarRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR_NAME} with the variable's value. Unset
// variables become empty strings.
func expandEnvVars(s string) string {
	return envVarRe.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarRe.FindStringSubmatch(match)[1])
	})
}

// Validate checks the file and fills in derived fields. It returns the
// first problem found.
func (f *File) Validate() error {
	if len(f.Servers) == 0 {
		return errors.New("no servers defined")
	}
	if f.ResponseTimeout < 0 {
		return fmt.Errorf("response_timeout must not be negative, got %s", f.ResponseTimeout)
	}
	if f.DefaultServer != "" {
		if _, ok := f.Servers[f.DefaultServer]; !ok {
			return fmt.Errorf("default_server %q is not defined under servers", f.DefaultServer)
		}
	}

	for _, key := range f.keys() {
		s := f.Servers[key]
		if s == nil {
			return fmt.Errorf("server %q: empty entry", key)
		}
		s.Key = key
		s.file = f
		if err := s.validate(); err != nil {
			return fmt.Errorf("server %q: %w", key, err)
		}
	}
	return nil
}

func (s *ServerConfig) validate() error {
	if s.ConnectionType == "" {
		s.ConnectionType = ConnectionProcess
	}
	switch s.ConnectionType {
	case ConnectionProcess:
		if strings.TrimSpace(s.Process.CommandLine) == "" {
			s.Process.CommandLine = DefaultCommandLine
		}
		if _, err := shellwords.Split(s.Process.CommandLine); err != nil {
			return fmt.Errorf("process.command_line: %w", err)
		}
		for _, kv := range s.Process.Env {
			if k, _, ok := strings.Cut(kv, "="); !ok || k == "" {
				return fmt.Errorf("process.env entry %q must be KEY=VALUE", kv)
			}
		}
	case ConnectionSocket:
		if s.Socket.Host == "" {
			s.Socket.Host = DefaultSocketHost
		}
		if s.Socket.Port == 0 {
			s.Socket.Port = DefaultSocketPort
		}
		if s.Socket.Timeout < 0 {
			return fmt.Errorf("socket.timeout must not be negative, got %s", s.Socket.Timeout)
		}
	default:
		return fmt.Errorf("invalid connection_type %q (must be %q or %q)", s.ConnectionType, ConnectionProcess, ConnectionSocket)
	}

	for name := range s.Defaults.Global {
		if name == "" {
			return errors.New("defaults.global contains an empty parameter name")
		}
	}
	for tool, params := range s.Defaults.Tools {
		for name := range params {
			if name == "" {
				return fmt.Errorf("defaults for tool %q contain an empty parameter name", tool)
			}
		}
	}
	return nil
}

func (f *File) keys() []string {
	keys := make([]string, 0, len(f.Servers))
	for k := range f.Servers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Resolve returns the named server, or the default server when name is
// empty.
func (f *File) Resolve(name string) (*ServerConfig, error) {
	if name == "" {
		name = f.DefaultServer
	}
	if name == "" {
		return nil, fmt.Errorf("no server name given and no default_server configured (available: %s)", strings.Join(f.keys(), ", "))
	}
	s, ok := f.Servers[name]
	if !ok {
		return nil, fmt.Errorf("server not found: %s (available: %s)", name, strings.Join(f.keys(), ", "))
	}
	return s, nil
}

// Summaries lists all entries sorted by key.
func (f *File) Summaries() []ServerSummary {
	out := make([]ServerSummary, 0, len(f.Servers))
	for _, key := range f.keys() {
		s := f.Servers[key]
		out = append(out, ServerSummary{
			Key:         key,
			Name:        s.DisplayName(),
			Description: s.Description,
			Type:        s.ConnectionType,
			Target:      s.Target(),
			Default:     key == f.DefaultServer,
		})
	}
	return out
}

// DisplayName returns Name, or the key when no name is set.
func (s *ServerConfig) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Key
}

// Target describes where the server lives: its command line or address.
func (s *ServerConfig) Target() string {
	if s.ConnectionType == ConnectionSocket {
		return s.Socket.Host + ":" + strconv.Itoa(int(s.Socket.Port))
	}
	target := s.Process.CommandLine
	if s.Process.AdditionalArguments != "" {
		target += " " + shellwords.Join([]string{s.Process.AdditionalArguments})
	}
	return target
}

// Endpoint builds the transport endpoint for the server.
func (s *ServerConfig) Endpoint() (mcp.Endpoint, error) {
	switch s.ConnectionType {
	case ConnectionSocket:
		return mcp.SocketEndpoint{
			Host:           s.Socket.Host,
			Port:           s.Socket.Port,
			ConnectTimeout: time.Duration(s.Socket.Timeout),
		}, nil
	default:
		words, err := shellwords.Split(s.Process.CommandLine)
		if err != nil {
			return nil, fmt.Errorf("process.command_line: %w", err)
		}
		if len(words) == 0 {
			return nil, errors.New("process.command_line is empty")
		}
		return mcp.ProcessEndpoint{
			Command: words[0],
			Args:    words[1:],
			Script:  s.Process.AdditionalArguments,
			Env:     s.Process.Env,
			Dir:     s.Process.Dir,
		}, nil
	}
}

// ClientConfig builds the client configuration for the server, applying
// the file-wide protocol, timeout and identity settings.
func (s *ServerConfig) ClientConfig(logger *slog.Logger) (mcp.Config, error) {
	endpoint, err := s.Endpoint()
	if err != nil {
		return mcp.Config{}, err
	}
	cfg := mcp.Config{
		Endpoint: endpoint,
		Logger:   logger,
	}
	if s.file != nil {
		cfg.ProtocolVersion = s.file.ProtocolVersion
		cfg.ResponseTimeout = time.Duration(s.file.ResponseTimeout)
		cfg.ClientName = s.file.ClientInfo.Name
		cfg.ClientVersion = s.file.ClientInfo.Version
	}
	return cfg, nil
}

// ToolDefaults returns the default arguments for tool: global defaults
// first, then tool-specific ones overriding on conflict.
func (s *ServerConfig) ToolDefaults(tool string) map[string]any {
	merged := make(map[string]any, len(s.Defaults.Global)+len(s.Defaults.Tools[tool]))
	for k, v := range s.Defaults.Global {
		merged[k] = v
	}
	for k, v := range s.Defaults.Tools[tool] {
		merged[k] = v
	}
	return merged
}
