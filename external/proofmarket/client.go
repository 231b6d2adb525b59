package proofmarket

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	pathRequest  = "/request"
	pathProof    = "/proof/%s"
	pathProposal = "/proposal/%s"
	pathProducer = "/producer/%s"

	defaultTimeout = 30 * time.Second
)

var (
	ErrNotFound = errors.New("the resource is not found in proof market")
)

type ClientOption interface {
	Apply(*Client)
}

type ClientOptionFunc func(*Client)

// Apply set up the option field to the client instance.
func (f ClientOptionFunc) Apply(client *Client) {
	f(client)
}

func WithBasicAuth(username, password string) ClientOption {
	return ClientOptionFunc(func(client *Client) {
		client.username = username
		client.password = password
	})
}

func WithTimeout(timeout time.Duration) ClientOption {
	return ClientOptionFunc(func(client *Client) {
		client.hc.Timeout = timeout
	})
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return ClientOptionFunc(func(client *Client) {
		client.hc = hc
	})
}

// Client talks to the proof market REST API. Every request carries basic authentication.
type Client struct {
	hc       *http.Client
	host     string
	username string
	password string
}

func NewClient(host string, opts ...ClientOption) *Client {
	transport := &http.Transport{
		DisableCompression:  true,
		MaxIdleConnsPerHost: 100,
		MaxConnsPerHost:     100,
		IdleConnTimeout:     90 * time.Second,
	}
	client := &Client{
		hc: &http.Client{
			Timeout:   defaultTimeout,
			Transport: transport,
		},
		host: strings.TrimSuffix(host, "/"),
	}
	for _, opt := range opts {
		opt.Apply(client)
	}
	return client
}

func (c *Client) Username() string {
	return c.username
}

// SubmitOrder posts a new order. Any status other than 200 is an error.
func (c *Client) SubmitOrder(ctx context.Context, order *OrderRequest) error {
	body, err := json.Marshal(order)
	if err != nil {
		return err
	}
	resp, err := c.sendRequest(ctx, http.MethodPost, c.host+pathRequest, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	bodyStr, err := readResponseBody(resp)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("received non-OK response status: %s, err %s", resp.Status, bodyStr)
	}
	return nil
}

// QueryOrders lists the orders matching every filter.
func (c *Client) QueryOrders(ctx context.Context, filters []Filter) ([]*Order, error) {
	q, err := json.Marshal(filters)
	if err != nil {
		return nil, err
	}
	orders := make([]*Order, 0)
	if err = c.getJSON(ctx, c.host+pathRequest+"?q="+url.QueryEscape(string(q)), &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) GetProof(ctx context.Context, proofKey string) (*Proof, error) {
	var proof Proof
	if err := c.getJSON(ctx, c.host+fmt.Sprintf(pathProof, url.PathEscape(proofKey)), &proof); err != nil {
		return nil, err
	}
	return &proof, nil
}

func (c *Client) GetProposal(ctx context.Context, proposalKey string) (*Proposal, error) {
	var proposal Proposal
	if err := c.getJSON(ctx, c.host+fmt.Sprintf(pathProposal, url.PathEscape(proposalKey)), &proposal); err != nil {
		return nil, err
	}
	return &proposal, nil
}

func (c *Client) GetProducer(ctx context.Context, name string) (*Producer, error) {
	var producer Producer
	if err := c.getJSON(ctx, c.host+fmt.Sprintf(pathProducer, url.PathEscape(name)), &producer); err != nil {
		return nil, err
	}
	return &producer, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	resp, err := c.sendRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	bz, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading http response body %s", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("received non-OK response status: %s, err %s", resp.Status, string(bz))
	}
	return json.Unmarshal(bz, out)
}

func (c *Client) sendRequest(ctx context.Context, method, endpoint string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.SetBasicAuth(c.username, c.password)
	return c.hc.Do(req)
}

func readResponseBody(resp *http.Response) (string, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
