package ec2client

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

const (
	defaultMaxRetries = 5
	defaultBaseDelay  = 100 * time.Millisecond
	defaultMaxDelay   = 30 * time.Second
)

// AWSClient wraps the EC2 API with retry logic
type AWSClient struct {
	api        API
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

func NewAWSClient(cfg aws.Config) *AWSClient {
	return NewFromAPI(ec2.NewFromConfig(cfg))
}

func NewFromAPI(api API) *AWSClient {
	return &AWSClient{
		api:        api,
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
		maxDelay:   defaultMaxDelay,
	}
}

// ListInstances returns every instance across all reservations
func (c *AWSClient) ListInstances(ctx context.Context) ([]types.Instance, error) {
	var instances []types.Instance

	paginator := ec2.NewDescribeInstancesPaginator(c.api, &ec2.DescribeInstancesInput{})
	for paginator.HasMorePages() {
		var page *ec2.DescribeInstancesOutput
		err := c.withRetry(ctx, func() error {
			var err error
			page, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to describe instances: %w", err)
		}

		for _, reservation := range page.Reservations {
			instances = append(instances, reservation.Instances...)
		}
	}

	if len(instances) == 0 {
		return nil, fmt.Errorf("no ec2 instance reservations found")
	}

	return instances, nil
}

func (c *AWSClient) GetInstance(ctx context.Context, id string) (*types.Instance, error) {
	var out *ec2.DescribeInstancesOutput
	err := c.withRetry(ctx, func() error {
		var err error
		out, err = c.api.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
			InstanceIds: []string{id},
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe instance %s: %w", id, err)
	}

	if len(out.Reservations) == 0 {
		return nil, fmt.Errorf("no ec2 instance reservations found for %s", id)
	}
	if len(out.Reservations[0].Instances) == 0 {
		return nil, fmt.Errorf("no ec2 instances in reservation found for %s", id)
	}

	inst := out.Reservations[0].Instances[0]
	return &inst, nil
}

func (c *AWSClient) Start(ctx context.Context, id string) error {
	err := c.withRetry(ctx, func() error {
		_, err := c.api.StartInstances(ctx, &ec2.StartInstancesInput{
			InstanceIds: []string{id},
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to start instance %s: %w", id, err)
	}
	return nil
}

func (c *AWSClient) Stop(ctx context.Context, id string) error {
	err := c.withRetry(ctx, func() error {
		_, err := c.api.StopInstances(ctx, &ec2.StopInstancesInput{
			InstanceIds: []string{id},
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to stop instance %s: %w", id, err)
	}
	return nil
}
