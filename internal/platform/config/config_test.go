package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const deployerHex = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rwaledger.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv(FileEnv, "")
	t.Setenv("RWALEDGER_DEPLOYER", deployerHex)

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Ledger.TxTimeout)
	assert.Equal(t, 100, cfg.Relay.BatchSize)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Kafka.Enabled())
	assert.False(t, cfg.Postgres.Enabled())
}

func TestFromEnvRequiresDeployer(t *testing.T) {
	t.Setenv(FileEnv, "")
	t.Setenv("RWALEDGER_DEPLOYER", "")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger.deployer is required")
}

func TestFileThenEnvOverrides(t *testing.T) {
	path := writeFile(t, `
server:
  addr: ":9090"
ledger:
  deployer: "`+deployerHex+`"
  tx_timeout: 2s
  genesis:
    - "0x0000000000000000000000000000000000000001"
relay:
  batch_size: 25
  poll_interval: 500ms
kafka:
  brokers: ["kafka:9092"]
  topic: ledger
`)
	t.Setenv(FileEnv, path)
	t.Setenv("RWALEDGER_OPS_ADDR", ":7070")
	t.Setenv("RELAY_BATCH_SIZE", "10")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, 2*time.Second, cfg.Ledger.TxTimeout)
	assert.Equal(t, 10, cfg.Relay.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.Relay.PollInterval)
	assert.Equal(t, []string{"kafka:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "ledger", cfg.Kafka.Topic)
	// unset sections keep defaults
	assert.Equal(t, "rwaledger:events", cfg.Redis.Stream)
}

func TestInvalidValues(t *testing.T) {
	t.Run("bad yaml", func(t *testing.T) {
		t.Setenv(FileEnv, writeFile(t, "server: ["))
		_, err := FromEnv()
		require.Error(t, err)
	})

	t.Run("bad duration", func(t *testing.T) {
		t.Setenv(FileEnv, "")
		t.Setenv("RWALEDGER_DEPLOYER", deployerHex)
		t.Setenv("RWALEDGER_TX_TIMEOUT", "soon")
		_, err := FromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "RWALEDGER_TX_TIMEOUT")
	})

	t.Run("missing file", func(t *testing.T) {
		t.Setenv(FileEnv, filepath.Join(t.TempDir(), "absent.yaml"))
		_, err := FromEnv()
		require.Error(t, err)
	})
}

func TestLedgerAccounts(t *testing.T) {
	l := Ledger{
		Deployer: deployerHex,
		Genesis: []string{
			"0x00000000000000000000000000000000000000AA",
			" 0x00000000000000000000000000000000000000aa ",
			"0x00000000000000000000000000000000000000bb",
		},
	}
	deployer, genesis, err := l.Accounts()
	require.NoError(t, err)
	assert.Equal(t, deployerHex, deployer.String())
	assert.Len(t, genesis, 2)

	l.Genesis = append(l.Genesis, "not-an-address")
	_, _, err = l.Accounts()
	require.Error(t, err)
}
