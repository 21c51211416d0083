package clickhouse

import (
	"net/url"
	"testing"
	"time"
)

func TestBuildDSN(t *testing.T) {
	cfg := &ClientConfig{
		Host:         "ch.local",
		Port:         9000,
		Database:     "cardio",
		User:         "writer",
		Password:     "p@ss",
		DialTimeout:  5 * time.Second,
		AsyncInsert:  true,
		WaitForAsync: false,
	}
	u, err := url.Parse(buildDSN(cfg))
	if err != nil {
		t.Fatalf("dsn does not parse: %v", err)
	}
	if u.Scheme != "clickhouse" || u.Host != "ch.local:9000" || u.Path != "/cardio" {
		t.Fatalf("unexpected dsn: %s", u)
	}
	if pw, _ := u.User.Password(); pw != "p@ss" {
		t.Fatalf("password must round-trip, got %q", pw)
	}
	q := u.Query()
	if q.Get("dial_timeout") != "5s" || q.Get("async_insert") != "1" || q.Get("wait_for_async_insert") != "0" {
		t.Fatalf("unexpected query: %v", q)
	}

	cfg.UseHTTP = true
	cfg.AsyncInsert = false
	u, _ = url.Parse(buildDSN(cfg))
	if u.Scheme != "http" || u.Query().Has("async_insert") {
		t.Fatalf("unexpected http dsn: %s", u)
	}
}
