package main

import (
	"testing"

	"github.com/snipdex/snipdex/internal/config"
)

func TestServeCmd_NoRoot(t *testing.T) {
	oldOverride := config.RootOverride
	config.RootOverride = "/definitely/nonexistent/snipdex-root"
	t.Cleanup(func() { config.RootOverride = oldOverride })

	t.Setenv("SNIPDEX_ROOT", "")

	cmd := serveCmd()
	cmd.SetArgs([]string{"--addr", "127.0.0.1:0"})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected error when the corpus root is invalid")
	}
}
