package cmd

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/doppler-analysis/configs"
)

func TestFlagKeysReferToRealFlags(t *testing.T) {
	v := viper.New()
	configs.SetDefaults(v)

	commands := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		commands[c.Name()] = true
	}

	for name, key := range flagKeys {
		cmdName, flagName, ok := strings.Cut(name, ".")
		require.True(t, ok, name)
		require.True(t, commands[cmdName], "unknown command %s", cmdName)

		c, _, err := rootCmd.Find([]string{cmdName})
		require.NoError(t, err)
		assert.NotNil(t, c.Flags().Lookup(flagName), "missing flag %s", name)
		assert.True(t, v.IsSet(key), "no default for %s", key)
	}
}

func TestBindFlagsAppliesConfiguredValues(t *testing.T) {
	v := viper.New()
	configs.SetDefaults(v)
	v.Set("server.address", ":9999")

	require.NoError(t, bindFlags(serveCmd, v))
	assert.Equal(t, ":9999", serveAddress)
	assert.Equal(t, ":9999", v.GetString("server.address"))
}
