package transcription

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/transcribeservice"
	"github.com/aws/aws-sdk-go/service/transcribeservice/transcribeserviceiface"
)

// AWSService runs jobs on Amazon Transcribe
type AWSService struct {
	client transcribeserviceiface.TranscribeServiceAPI
}

// NewAWSService creates a Transcribe client from the shared session
func NewAWSService(sess *session.Session) *AWSService {
	return NewAWSServiceWithClient(transcribeservice.New(sess))
}

// NewAWSServiceWithClient wraps an existing client, used by tests
func NewAWSServiceWithClient(client transcribeserviceiface.TranscribeServiceAPI) *AWSService {
	return &AWSService{client: client}
}

// StartJob registers an asynchronous transcription job
func (s *AWSService) StartJob(ctx context.Context, req JobRequest) error {
	input := &transcribeservice.StartTranscriptionJobInput{
		TranscriptionJobName: aws.String(req.Name),
		LanguageCode:         aws.String(req.LanguageCode),
		MediaFormat:          aws.String(req.MediaFormat),
		Media: &transcribeservice.Media{
			MediaFileUri: aws.String(req.MediaURI),
		},
	}
	if req.OutputBucket != "" {
		input.OutputBucketName = aws.String(req.OutputBucket)
		if req.OutputKey != "" {
			input.OutputKey = aws.String(req.OutputKey)
		}
	}

	if _, err := s.client.StartTranscriptionJobWithContext(ctx, input); err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == transcribeservice.ErrCodeConflictException {
			return fmt.Errorf("%w: %s", ErrJobExists, req.Name)
		}
		return fmt.Errorf("failed to start transcription job %s: %w", req.Name, err)
	}

	log.Printf("Transcription job %s started (media: %s, format: %s, language: %s)",
		req.Name, req.MediaURI, req.MediaFormat, req.LanguageCode)
	return nil
}

// GetJob queries the job's current status
func (s *AWSService) GetJob(ctx context.Context, name string) (*JobInfo, error) {
	out, err := s.client.GetTranscriptionJobWithContext(ctx, &transcribeservice.GetTranscriptionJobInput{
		TranscriptionJobName: aws.String(name),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get transcription job %s: %w", name, err)
	}
	if out.TranscriptionJob == nil {
		return nil, fmt.Errorf("transcription job %s: empty response", name)
	}

	job := out.TranscriptionJob
	info := &JobInfo{
		Name:          name,
		Status:        JobStatus(aws.StringValue(job.TranscriptionJobStatus)),
		FailureReason: aws.StringValue(job.FailureReason),
	}
	if job.Transcript != nil {
		info.TranscriptURI = aws.StringValue(job.Transcript.TranscriptFileUri)
	}
	return info, nil
}
