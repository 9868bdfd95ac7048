package archive

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"allergen-scan/api/internal/menu"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var _ menu.Archiver = (*S3Archiver)(nil)

type fakePutter struct {
	inputs []*s3.PutObjectInput
	bodies [][]byte
	err    error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	b, _ := io.ReadAll(in.Body)
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, b)
	return &s3.PutObjectOutput{}, f.err
}

func TestArchiveParseFailure(t *testing.T) {
	fp := &fakePutter{}
	a := NewWithClient(fp, "replies", "")
	a.newID = func() string { return "fixed-id" }

	at := time.Date(2026, 3, 4, 23, 30, 0, 0, time.FixedZone("X", -2*3600))
	rep := menu.ParseFailureReport{
		Variant:       "allergen-basic",
		PromptVersion: "allergen-basic/v1",
		Engine:        "gemini",
		Reason:        "reply is not valid JSON",
		RawReply:      "Sorry, I cannot process this image.",
		At:            at,
	}
	if err := a.ArchiveParseFailure(context.Background(), rep); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fp.inputs) != 1 {
		t.Fatalf("expected one put, got %d", len(fp.inputs))
	}

	in := fp.inputs[0]
	if aws.ToString(in.Bucket) != "replies" {
		t.Errorf("unexpected bucket %s", aws.ToString(in.Bucket))
	}
	if got := aws.ToString(in.Key); got != "parse-failures/2026-03-05/fixed-id.json" {
		t.Errorf("unexpected key %s", got)
	}
	if in.Metadata["prompt-version"] != "allergen-basic/v1" {
		t.Errorf("unexpected metadata %v", in.Metadata)
	}

	var stored menu.ParseFailureReport
	if err := json.Unmarshal(fp.bodies[0], &stored); err != nil {
		t.Fatalf("stored body is not JSON: %v", err)
	}
	if stored.RawReply != rep.RawReply {
		t.Errorf("expected raw reply preserved, got %q", stored.RawReply)
	}
}

func TestArchiveParseFailure_PutError(t *testing.T) {
	fp := &fakePutter{err: errors.New("access denied")}
	a := NewWithClient(fp, "replies", "/custom/")

	err := a.ArchiveParseFailure(context.Background(), menu.ParseFailureReport{RawReply: "x"})
	if err == nil || !strings.Contains(err.Error(), "access denied") {
		t.Fatalf("expected put error, got %v", err)
	}
	if key := aws.ToString(fp.inputs[0].Key); !strings.HasPrefix(key, "custom/") {
		t.Errorf("expected custom prefix, got %s", key)
	}
}

func TestNew_EmptyBucket(t *testing.T) {
	if _, err := New(context.Background(), Options{}); err == nil {
		t.Fatal("expected error for empty bucket")
	}
}
