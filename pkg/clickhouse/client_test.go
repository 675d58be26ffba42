package clickhouse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildDSN(t *testing.T) {
	cfg := ClientConfig{
		Host:        "ch",
		Port:        9000,
		Database:    "sentidash",
		User:        "default",
		DialTimeout: 5 * time.Second,
		MaxExecTime: 30 * time.Second,
	}
	assert.Equal(t,
		"clickhouse://default:@ch:9000/sentidash?dial_timeout=5s&max_execution_time=30",
		buildDSN(cfg))

	cfg.UseHTTP = true
	cfg.DialTimeout = 0
	cfg.MaxExecTime = 0
	cfg.AsyncInsert = true
	cfg.WaitForAsync = true
	assert.Equal(t,
		"clickhouse+http://default:@ch:9000/sentidash?async_insert=1&wait_for_async_insert=1",
		buildDSN(cfg))
}

func TestNewClientRequiresHost(t *testing.T) {
	_, err := NewClient(WithPort(9000))
	assert.Error(t, err)
}
