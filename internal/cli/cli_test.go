package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zachkp/zach-portfolio/internal/config"
	"github.com/Zachkp/zach-portfolio/internal/content"
)

func TestSessionOptionsFromConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "")
	cfg, err := config.Load("")
	require.NoError(t, err)

	c := content.Default()
	opts := sessionOptions(cfg, c)

	assert.Equal(t, 26.0, opts.AgeTarget)
	assert.Equal(t, time.Second, opts.CountUpDuration)
	assert.Equal(t, "about", opts.Region)
	assert.Equal(t, 0.5, opts.Threshold)
	assert.Len(t, opts.Greeting.Entries, 6)
	assert.Equal(t, 3*time.Second, opts.Greeting.Total())
	assert.Equal(t, 500*time.Millisecond, opts.Greeting.FadeOut)
}

func TestContentCommand(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("PORT", "")
	contentPath := filepath.Join(dir, "content.yaml")
	require.NoError(t, os.WriteFile(contentPath, []byte("name: Sam\n"), 0o644))
	t.Setenv("PORTFOLIO_CONTENT_PATH", contentPath)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"content", "--log-level", "error"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		logLevel = ""
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "name: Sam")
	assert.Contains(t, out.String(), "language: English")
}
