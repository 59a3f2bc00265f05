package s3store

import "testing"

func TestObjectKey(t *testing.T) {
	s := &Store{bucket: "reports", prefix: "exports"}
	if got := s.objectKey("/municipality/x.csv"); got != "exports/municipality/x.csv" {
		t.Fatalf("objectKey: %s", got)
	}
	s.prefix = ""
	if got := s.objectKey("x.csv"); got != "x.csv" {
		t.Fatalf("objectKey without prefix: %s", got)
	}
}
