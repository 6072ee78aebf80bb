package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVersionCommand(t *testing.T) {
	tests := []struct {
		name    string
		version string
		wantOut []string
	}{
		{
			name:    "default version",
			version: "0.1.0",
			wantOut: []string{"bdc v0.1.0", "Brazilian public records"},
		},
		{
			name:    "custom version",
			version: "1.2.3",
			wantOut: []string{"bdc v1.2.3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewVersionCommand(tt.version)
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)

			require.NoError(t, cmd.Execute())

			output := buf.String()
			for _, want := range tt.wantOut {
				assert.Contains(t, output, want)
			}
		})
	}
}

func TestNewAskCommand(t *testing.T) {
	cmd := NewAskCommand()

	assert.Equal(t, "ask <question>", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")

	for _, flag := range []string{"format", "limit"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestNewServeCommand(t *testing.T) {
	cmd := NewServeCommand()

	assert.Equal(t, "serve", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.Contains(t, cmd.Long, "/chat")
}

func TestNewSchemaCommand(t *testing.T) {
	cmd := NewSchemaCommand()

	assert.Equal(t, "schema", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup("refresh"), "flag refresh should exist")
}

func TestNewHistoryCommand(t *testing.T) {
	cmd := NewHistoryCommand()

	assert.Equal(t, "history", cmd.Use)
	for _, flag := range []string{"limit", "format"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestRootCommandStructure(t *testing.T) {
	root := NewRootCmd()

	assert.Equal(t, "bdc", root.Use)

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "ask", "schema", "history", "version"} {
		assert.Contains(t, names, want, "subcommand %q should be registered", want)
	}

	// Persistent flags wired into the config loader.
	for _, flag := range []string{"config", "addr", "db", "history", "default-limit", "max-limit", "schema-ttl", "verbose"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "persistent flag %q should exist", flag)
	}
}

func TestRootVersionFlag(t *testing.T) {
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"--version"})

	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), Version)
}

func TestVersionCommandSkipsConfigLoad(t *testing.T) {
	// version must work without a config file or warehouse settings.
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.True(t, strings.HasPrefix(buf.String(), "bdc v"), "got: %s", buf.String())
}
