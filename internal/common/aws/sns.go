// internal/common/aws/sns.go
package aws

import (
	"context"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSClient sends transactional SMS to applicants.
type SNSClient struct {
	api snsAPI
}

func NewSNSClient(ctx context.Context, region string) (*SNSClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &SNSClient{api: sns.NewFromConfig(cfg)}, nil
}

// PublishSMS texts a single phone number. An empty senderID leaves the
// carrier default in place.
func (s *SNSClient) PublishSMS(ctx context.Context, phoneNumber, message, senderID string) error {
	input := &sns.PublishInput{
		Message:     awssdk.String(message),
		PhoneNumber: awssdk.String(phoneNumber),
	}
	if senderID != "" {
		input.MessageAttributes = map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {
				DataType:    awssdk.String("String"),
				StringValue: awssdk.String(senderID),
			},
		}
	}

	_, err := s.api.Publish(ctx, input)
	return err
}
