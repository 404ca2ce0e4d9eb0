package database

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

type fakeConn struct {
	driver.Conn
	pingErr error
	execErr error
	execs   []string
	closed  bool
}

func (c *fakeConn) Ping(context.Context) error { return c.pingErr }

func (c *fakeConn) Exec(_ context.Context, query string, _ ...any) error {
	c.execs = append(c.execs, query)
	return c.execErr
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func TestOpenAlertLog(t *testing.T) {
	tests := []struct {
		name       string
		conn       *fakeConn
		wantErr    string
		wantClosed bool
	}{
		{name: "ready", conn: &fakeConn{}},
		{name: "ping fails", conn: &fakeConn{pingErr: errors.New("connection refused")}, wantErr: "ping", wantClosed: true},
		{name: "schema fails", conn: &fakeConn{execErr: errors.New("readonly")}, wantErr: "schema", wantClosed: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			db, err := openAlertLog(context.Background(), tc.conn)
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) || db != nil {
					t.Fatalf("expected %q error, got db=%v err=%v", tc.wantErr, db, err)
				}
			} else if err != nil {
				t.Fatalf("openAlertLog: %v", err)
			}
			if tc.conn.closed != tc.wantClosed {
				t.Errorf("closed=%v, want %v", tc.conn.closed, tc.wantClosed)
			}
		})
	}
}

func TestOpenAlertLogCreatesFireAlerts(t *testing.T) {
	conn := &fakeConn{}
	if _, err := openAlertLog(context.Background(), conn); err != nil {
		t.Fatalf("openAlertLog: %v", err)
	}
	if len(conn.execs) != 1 || !strings.Contains(conn.execs[0], "fire_alerts") {
		t.Fatalf("execs: %v", conn.execs)
	}
}
