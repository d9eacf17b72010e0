package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

const s3MaxAttempts = 5

var errWriteConflict = errors.New("users object changed concurrently")

// objectAPI is the subset of *s3.Client the store needs.
type objectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store keeps the whole collection in a single JSON object. Writes are
// conditional on the ETag read (or on absence for the first write), so a
// concurrent writer in another process forces a reload instead of a lost
// update.
type S3Store struct {
	api    objectAPI
	bucket string
	key    string
	mu     sync.Mutex
}

func NewS3Store(api objectAPI, bucket, key string) *S3Store {
	return &S3Store{api: api, bucket: bucket, key: key}
}

func (s *S3Store) Find(ctx context.Context, email string) (*models.User, error) {
	users, _, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if i := indexOf(users, email); i >= 0 {
		u := users[i]
		return &u, nil
	}
	return nil, ErrUserNotFound
}

func (s *S3Store) Add(ctx context.Context, email string) (*models.User, error) {
	var created *models.User
	err := s.update(ctx, func(users []models.User) ([]models.User, bool, error) {
		if indexOf(users, email) >= 0 {
			return nil, false, ErrDuplicateIdentity
		}
		user, err := newUser(email)
		if err != nil {
			return nil, false, err
		}
		created = user
		return append(users, *user), true, nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *S3Store) List(ctx context.Context) ([]models.User, error) {
	users, _, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

func (s *S3Store) Remove(ctx context.Context, email string) (bool, error) {
	removed := false
	err := s.update(ctx, func(users []models.User) ([]models.User, bool, error) {
		i := indexOf(users, email)
		if i < 0 {
			removed = false
			return nil, false, nil
		}
		removed = true
		return append(users[:i], users[i+1:]...), true, nil
	})
	return removed, err
}

func (s *S3Store) Ping(ctx context.Context) error {
	_, _, err := s.load(ctx)
	return err
}

func (s *S3Store) Close() error { return nil }

func (s *S3Store) update(ctx context.Context, mutate func([]models.User) ([]models.User, bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 0; attempt < s3MaxAttempts; attempt++ {
		users, etag, err := s.load(ctx)
		if err != nil {
			return err
		}
		next, changed, err := mutate(users)
		if err != nil || !changed {
			return err
		}
		err = s.save(ctx, next, etag)
		if errors.Is(err, errWriteConflict) {
			continue
		}
		return err
	}
	return wrap("update users object", errWriteConflict)
}

func (s *S3Store) load(ctx context.Context) ([]models.User, *string, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, nil, nil
		}
		return nil, nil, wrap("get users object", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, nil, wrap("read users object", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, out.ETag, nil
	}

	var users []models.User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, nil, wrap("decode users object", err)
	}
	return users, out.ETag, nil
}

func (s *S3Store) save(ctx context.Context, users []models.User, etag *string) error {
	if users == nil {
		users = []models.User{}
	}
	data, err := json.Marshal(users)
	if err != nil {
		return wrap("encode users", err)
	}

	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	}
	if etag == nil {
		in.IfNoneMatch = aws.String("*")
	} else {
		in.IfMatch = etag
	}

	if _, err := s.api.PutObject(ctx, in); err != nil {
		if isPreconditionFailed(err) {
			return errWriteConflict
		}
		return wrap("put users object", err)
	}
	return nil
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "PreconditionFailed", "ConditionalRequestConflict":
		return true
	}
	return false
}
