package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"

	"platter/internal/backup"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Scan enumerates drives with media present.
func (c *Client) Scan() (*ScanResponse, error) {
	var resp ScanResponse
	if err := c.client.Call("Platter.Scan", ScanRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// BackupStart starts a backup for one drive.
func (c *Client) BackupStart(req backup.Request) (*BackupStartResponse, error) {
	var resp BackupStartResponse
	if err := c.client.Call("Platter.BackupStart", BackupStartRequest{Request: req}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// BackupCancel cancels the backup on one drive.
func (c *Client) BackupCancel(driveID int) (*BackupCancelResponse, error) {
	var resp BackupCancelResponse
	if err := c.client.Call("Platter.BackupCancel", BackupCancelRequest{DriveID: driveID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// BackupStatus lists in-flight backups.
func (c *Client) BackupStatus() (*BackupStatusResponse, error) {
	var resp BackupStatusResponse
	if err := c.client.Call("Platter.BackupStatus", BackupStatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History lists recent backup runs.
func (c *Client) History(limit int) (*HistoryResponse, error) {
	var resp HistoryResponse
	if err := c.client.Call("Platter.History", HistoryRequest{Limit: limit}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Platter.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to stop processing.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Platter.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Events polls for orchestrator events after a sequence number.
func (c *Client) Events(afterSeq int64, waitMillis int) (*EventsResponse, error) {
	var resp EventsResponse
	req := EventsRequest{AfterSeq: afterSeq, WaitMillis: waitMillis}
	if err := c.client.Call("Platter.Events", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("Platter.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
