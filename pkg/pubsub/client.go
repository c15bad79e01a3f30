package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/asarum-backend/pkg/config"
	"github.com/angelmondragon/asarum-backend/pkg/logger"
)

var errNotConnected = errors.New("pubsub client not connected")

// Client holds the orders topic and the analytics subscription on it. Both
// names are resolved to full resource names once, at construction.
type Client struct {
	client       *pubsub.Client
	topic        string
	subscription string
}

// NewClient connects and fails fast when a configured resource is missing.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errors.New("gcp project id is required")
	}
	c := &Client{
		topic:        resourceName(project, "topics", cfg.OrdersTopic),
		subscription: resourceName(project, "subscriptions", cfg.AnalyticsSubscription),
	}
	if c.topic == "" && c.subscription == "" {
		return nil, errors.New("orders topic or analytics subscription is required")
	}

	client, err := pubsub.NewClient(ctx, project, gcp.ClientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}
	c.client = client
	if err := c.Ping(ctx); err != nil {
		return nil, errors.Join(err, client.Close())
	}

	logg.Info(logg.WithFields(ctx, map[string]any{
		"topic":        c.topic,
		"subscription": c.subscription,
	}), "pubsub client initialized")
	return c, nil
}

// Ping checks that the configured topic and subscription still exist.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotConnected
	}
	if c.topic != "" {
		_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: c.topic})
		if err := missing("topic", c.topic, err); err != nil {
			return err
		}
	}
	if c.subscription != "" {
		_, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: c.subscription})
		if err := missing("subscription", c.subscription, err); err != nil {
			return err
		}
	}
	return nil
}

// OrdersPublisher publishes to the orders topic with message ordering on.
// Callers own the publisher and Stop it on shutdown.
func (c *Client) OrdersPublisher() *pubsub.Publisher {
	if c == nil || c.client == nil || c.topic == "" {
		return nil
	}
	publisher := c.client.Publisher(c.topic)
	publisher.EnableMessageOrdering = true
	return publisher
}

// AnalyticsSubscription receives the orders topic for the analytics worker.
func (c *Client) AnalyticsSubscription() *pubsub.Subscriber {
	if c == nil || c.client == nil || c.subscription == "" {
		return nil
	}
	return c.client.Subscriber(c.subscription)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func missing(kind, name string, err error) error {
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%s %s does not exist", kind, name)
	default:
		return fmt.Errorf("get %s %s: %w", kind, name, err)
	}
}

// resourceName expands a short id to projects/<project>/<kind>/<id>. Full
// names pass through so resources in another project can be used.
func resourceName(project, kind, name string) string {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return ""
	case strings.HasPrefix(name, "projects/") && strings.Contains(name, "/"+kind+"/"):
		return name
	default:
		return "projects/" + project + "/" + kind + "/" + name
	}
}
