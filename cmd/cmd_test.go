package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/billcheck/internal/server"
)

func TestParseManualLine(t *testing.T) {
	line, err := parseManualLine("iPhone 15, plan=70, discount=10, device=$25, credit=5, phone=555-0100, name=Unlimited Plus")
	require.NoError(t, err)
	assert.Equal(t, "iPhone 15", line.DeviceName)
	assert.Equal(t, "555-0100", line.PhoneNumber)
	assert.Equal(t, "Unlimited Plus", line.PlanName)
	assert.Equal(t, 70.0, line.PlanCost)
	assert.Equal(t, 10.0, line.PlanDiscount)
	assert.Equal(t, 25.0, line.DevicePayment)
	assert.Equal(t, 5.0, line.DeviceCredit)

	line, err = parseManualLine("iPad,protection=9,perks=10,perks-discount=10,surcharges=1.5,taxes=2")
	require.NoError(t, err)
	assert.Equal(t, 9.0, line.Protection)
	assert.Equal(t, 10.0, line.Perks)
	assert.Equal(t, 10.0, line.PerksDiscount)
	assert.Equal(t, 1.5, line.Surcharges)
	assert.Equal(t, 2.0, line.Taxes)
}

func TestParseManualLine_Errors(t *testing.T) {
	tests := []struct {
		spec string
		want string
	}{
		{"", "device name"},
		{"plan=70", "device name"},
		{"Pixel,plan", "expected key=value"},
		{"Pixel,plan=abc", "plan"},
		{"Pixel,minutes=300", "unknown key"},
		{"x,plan=inf", "not a finite amount"},
		{"x,taxes=NaN", "not a finite amount"},
		{"x,device=-Infinity", "not a finite amount"},
	}
	for _, tt := range tests {
		_, err := parseManualLine(tt.spec)
		require.Error(t, err, tt.spec)
		assert.Contains(t, err.Error(), tt.want, tt.spec)
	}
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "sk-live-...cdef", maskAPIKey("sk-live-0123456789abcdef"))
	assert.Equal(t, "abcd...", maskAPIKey("abcdefgh"))
	assert.Equal(t, "****", maskAPIKey("abc"))
}

func TestFilterDetachArg(t *testing.T) {
	got := filterDetachArg([]string{"serve", "--detach", "--addr", ":9000", "--detach=true"})
	assert.Equal(t, []string{"serve", "--addr", ":9000"}, got)
}

func TestPIDAndStateFiles(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "billcheckd.pid")

	_, err := readPID(pidFile)
	assert.ErrorIs(t, err, os.ErrNotExist)
	require.NoError(t, ensureServerNotRunning(pidFile))

	require.NoError(t, writePID(pidFile, 4242))
	pid, err := readPID(pidFile)
	require.NoError(t, err)
	assert.Equal(t, 4242, pid)

	require.NoError(t, os.WriteFile(pidFile, []byte("nope\n"), 0o600))
	_, err = readPID(pidFile)
	assert.Error(t, err)

	started := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	want := serverRuntimeState{PID: 4242, Addr: "127.0.0.1:8787", StartedAt: started, DataDir: "/tmp/bills"}
	require.NoError(t, writeState(statePath(pidFile), want))
	got, err := readState(statePath(pidFile))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStatusPairs(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	pairs := statusPairs(server.Status{
		UptimeSec:      90,
		Extraction:     true,
		Analyses:       1200,
		Failures:       3,
		LastAnalysisAt: now.Add(-2 * time.Hour),
		LastError:      "bill extraction failed: timeout",
	}, now)

	got := make(map[string]string, len(pairs))
	for _, p := range pairs {
		got[p[0]] = p[1]
	}
	assert.Equal(t, "1m30s", got["Uptime"])
	assert.Equal(t, "configured", got["Extraction"])
	assert.Equal(t, "1,200", got["Analyses"])
	assert.Equal(t, "2h ago", got["Last analysis"])
	assert.Equal(t, "bill extraction failed: timeout", got["Last error"])

	pairs = statusPairs(server.Status{}, now)
	assert.Len(t, pairs, 7)
}

func TestOrDash(t *testing.T) {
	assert.Equal(t, "-", orDash("  "))
	assert.Equal(t, "A1", orDash("A1"))
	assert.Equal(t, "AT&T", carrierName("att"))
	assert.Equal(t, "sprint", carrierName("sprint"))
}
