package sms

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"consultations/internal/domain"
)

// maxSenderIDLength is the longest alphanumeric sender id carriers accept.
const maxSenderIDLength = 11

// SNSConfig holds configuration for AWS SNS.
type SNSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// SenderConfig holds configuration for creating an SMS sender.
type SenderConfig struct {
	Provider string
	SenderID string
	SNS      SNSConfig
}

// snsAPI is the subset of the SNS client the sender uses.
type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// NewSender creates an SMS sender from config. Provider "sns" uses AWS SNS; anything else logs instead of sending.
func NewSender(config SenderConfig, logger *slog.Logger) domain.SMSSender {
	switch config.Provider {
	case "sns":
		awsCfg := aws.Config{
			Region: config.SNS.Region,
			Credentials: aws.NewCredentialsCache(
				credentials.NewStaticCredentialsProvider(
					config.SNS.AccessKeyID,
					config.SNS.SecretAccessKey,
					"",
				),
			),
		}
		return newSNSSender(sns.NewFromConfig(awsCfg), config.SenderID, logger)
	case "noop", "":
		return &noopSender{logger: logger}
	default:
		logger.Warn("unknown sms provider, using noop", "provider", config.Provider)
		return &noopSender{logger: logger}
	}
}

type snsSender struct {
	client   snsAPI
	senderID string
	logger   *slog.Logger
}

func newSNSSender(client snsAPI, senderID string, logger *slog.Logger) *snsSender {
	if len(senderID) > maxSenderIDLength {
		senderID = senderID[:maxSenderIDLength]
	}
	return &snsSender{client: client, senderID: senderID, logger: logger}
}

// Send publishes a transactional SMS. phone must already be in E.164 form.
func (s *snsSender) Send(ctx context.Context, phone, message string) error {
	attrs := map[string]types.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": {
			DataType:    aws.String("String"),
			StringValue: aws.String("Transactional"),
		},
	}
	if s.senderID != "" {
		attrs["AWS.SNS.SMS.SenderID"] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(s.senderID),
		}
	}
	result, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber:       aws.String(phone),
		Message:           aws.String(message),
		MessageAttributes: attrs,
	})
	if err != nil {
		return fmt.Errorf("failed to send sms via SNS: %w", err)
	}
	s.logger.DebugContext(ctx, "sms sent via SNS", "message_id", aws.ToString(result.MessageId))
	return nil
}

type noopSender struct {
	logger *slog.Logger
}

func (n *noopSender) Send(ctx context.Context, phone, message string) error {
	n.logger.InfoContext(ctx, "sms would be sent (noop)", "phone", phone, "length", len(message))
	return nil
}
