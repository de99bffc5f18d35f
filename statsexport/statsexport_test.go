package statsexport_test

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/odypool/pooler/statsexport"
)

func TestNewRedisPublisherRejectsInvalidURL(t *testing.T) {
	_, err := statsexport.NewRedisPublisher("not-a-redis-url", zerolog.Nop())
	if err == nil {
		t.Fatal("expected an error for a malformed REDIS_URL")
	}
}

func TestNewRedisPublisherAcceptsValidURL(t *testing.T) {
	pub, err := statsexport.NewRedisPublisher("redis://localhost:6379/0", zerolog.Nop())
	if err != nil {
		t.Fatalf("expected a well-formed URL to parse, got error: %v", err)
	}
	defer pub.Close()
}
