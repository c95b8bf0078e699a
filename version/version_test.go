package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	info := Get()
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
}

func TestInfo_String(t *testing.T) {
	info := Info{Version: "v1.2.0", CommitHash: "0123456789abcdef", BuildTime: "2026-01-02"}
	assert.Equal(t, "composr v1.2.0 (commit 0123456, built 2026-01-02)", info.String())
	assert.Equal(t, "dev", Info{CommitHash: "dev"}.Short())
}
