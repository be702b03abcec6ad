// Package client provides a basic REST client for the mailbag API
package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/inbucket/mailbag/pkg/rest/model"
)

// Client accesses the mailbag REST API v1
type Client struct {
	restClient
}

// New creates a new v1 REST API client given the base URL of a mailbag
// server, ex: "http://localhost:9000"
func New(baseURL string) (*Client, error) {
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		restClient{
			client: &http.Client{
				Timeout: 30 * time.Second,
			},
			baseURL: parsedURL,
		},
	}
	return c, nil
}

// CreateMailbox allocates a new mailbox address on the server.
func (c *Client) CreateMailbox(ctx context.Context) (string, error) {
	v := &model.JSONMailboxV1{}
	err := c.doJSON(ctx, "POST", "/api/v1/mailbox", nil, nil, v)
	if err != nil {
		return "", err
	}
	return v.Mailbox, nil
}

// DeleteMailbox destroys the named mailbox and all of its messages.
func (c *Client) DeleteMailbox(ctx context.Context, name string) error {
	return c.doJSON(ctx, "DELETE", "/api/v1/mailbox/"+url.PathEscape(name), nil, nil, nil)
}

// PostMessage stores a new message in the named mailbox, returning the
// generated message ID.
func (c *Client) PostMessage(
	ctx context.Context, name, from, subject, body string) (string, error) {
	reqBody, err := json.Marshal(&model.JSONNewMessageV1{
		From:    from,
		Subject: subject,
		Body:    body,
	})
	if err != nil {
		return "", err
	}
	v := &model.JSONMessageIDV1{}
	err = c.doJSON(ctx, "POST", "/api/v1/mailbox/"+url.PathEscape(name), nil, reqBody, v)
	if err != nil {
		return "", err
	}
	return v.ID, nil
}

// ListMailbox returns one page of message headers for the named mailbox,
// most recent first.  An empty cursor starts at the newest message; size 0
// requests the server default page size.
func (c *Client) ListMailbox(
	ctx context.Context, name, cursor string, size int) (*model.JSONMessageListV1, error) {
	query := url.Values{}
	if cursor != "" {
		query.Set("cursor", cursor)
	}
	if size > 0 {
		query.Set("size", strconv.Itoa(size))
	}
	v := &model.JSONMessageListV1{}
	err := c.doJSON(ctx, "GET", "/api/v1/mailbox/"+url.PathEscape(name), query, nil, v)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// GetMessage returns the message details given a mailbox name and message ID.
func (c *Client) GetMessage(ctx context.Context, name, id string) (*model.JSONMessageV1, error) {
	v := &model.JSONMessageV1{}
	uri := "/api/v1/mailbox/" + url.PathEscape(name) + "/" + id
	err := c.doJSON(ctx, "GET", uri, nil, nil, v)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// DeleteMessage deletes a single message given the mailbox name and message
// ID.
func (c *Client) DeleteMessage(ctx context.Context, name, id string) error {
	uri := "/api/v1/mailbox/" + url.PathEscape(name) + "/" + id
	return c.doJSON(ctx, "DELETE", uri, nil, nil, nil)
}
