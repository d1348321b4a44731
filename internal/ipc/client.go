package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to a running controller.
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

// Status retrieves the controller status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("MediaController.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ReportProgress forwards a remote loader's counts.
func (c *Client) ReportProgress(total, remaining int) (*ReportProgressResponse, error) {
	var resp ReportProgressResponse
	req := ReportProgressRequest{Total: total, Remaining: remaining}
	if err := c.client.Call("MediaController.ReportProgress", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LoadKey triggers loading of every loadable registered under key.
func (c *Client) LoadKey(key string) (*LoadKeyResponse, error) {
	var resp LoadKeyResponse
	if err := c.client.Call("MediaController.LoadKey", LoadKeyRequest{Key: key}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AssetList returns registered assets, optionally filtered by class
// attribute.
func (c *Client) AssetList(attribute string) (*AssetListResponse, error) {
	var resp AssetListResponse
	req := AssetListRequest{Attribute: attribute}
	if err := c.client.Call("MediaController.AssetList", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Shutdown asks the controller to stop.
func (c *Client) Shutdown() (*ShutdownResponse, error) {
	var resp ShutdownResponse
	if err := c.client.Call("MediaController.Shutdown", ShutdownRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
