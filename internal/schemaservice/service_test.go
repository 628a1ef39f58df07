package schemaservice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/topwebdesignco/advanced-schema-manager/internal/apperr"
	"github.com/topwebdesignco/advanced-schema-manager/internal/models"
	"github.com/topwebdesignco/advanced-schema-manager/internal/testutil"
)

type recorder struct{ events []string }

func (r *recorder) PublishSchemaEvent(kind string, id int64) {
	r.events = append(r.events, kind)
}

func newService(t *testing.T, cfg Config) (*Service, *recorder) {
	t.Helper()
	rec := &recorder{}
	return New(testutil.TestDB(t), rec, cfg, slog.New(slog.NewTextHandler(io.Discard, nil))), rec
}

func validInput() Input {
	return Input{TargetType: "post", Target: "42", Label: "Article", Document: `{"@type":"Article","headline":"x"}`}
}

func fieldErrors(t *testing.T, err error) validation.Errors {
	t.Helper()
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected validation.Errors, got %T: %v", err, err)
	}
	return verrs
}

func TestCreate_GetRoundTrip(t *testing.T) {
	svc, ev := newService(t, Config{})
	ctx := context.Background()

	rec, err := svc.Create(ctx, validInput())
	if err != nil {
		t.Fatal(err)
	}
	got, err := svc.Get(ctx, rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.TargetType != "post" || got.Target != models.ItemSelector("42") || got.Label != "Article" || got.Document != validInput().Document {
		t.Errorf("unexpected record %+v", got)
	}
	if len(ev.events) != 1 || ev.events[0] != EventCreated {
		t.Errorf("events = %v", ev.events)
	}
}

func TestCreate_AllPages(t *testing.T) {
	svc, _ := newService(t, Config{})
	for _, target := range []string{"all", "-1", "pages"} {
		in := validInput()
		in.TargetType, in.Target = "page", target
		rec, err := svc.Create(context.Background(), in)
		if err != nil {
			t.Fatalf("%s: %v", target, err)
		}
		if rec.Target.Kind != models.SelectorAllOfType || rec.Target.String() != models.SelectorAll {
			t.Errorf("%s stored as %+v", target, rec.Target)
		}
	}
}

func TestCreate_AllOfNonPageTypeRejected(t *testing.T) {
	svc, ev := newService(t, Config{})
	in := validInput()
	in.Target = "all"
	verrs := fieldErrors(t, mustFail(t, svc, in))
	if _, ok := verrs["target"]; !ok {
		t.Errorf("expected target error, got %v", verrs)
	}
	if len(ev.events) != 0 {
		t.Error("event published for rejected input")
	}
}

func TestCreate_ValidationFields(t *testing.T) {
	svc, _ := newService(t, Config{})
	verrs := fieldErrors(t, mustFail(t, svc, Input{}))
	for _, f := range []string{"target_type", "target", "label", "document"} {
		if _, ok := verrs[f]; !ok {
			t.Errorf("missing error for %s: %v", f, verrs)
		}
	}

	in := validInput()
	in.Label = "Spaceship"
	if _, ok := fieldErrors(t, mustFail(t, svc, in))["label"]; !ok {
		t.Error("unknown label accepted")
	}

	in = validInput()
	in.TargetType = "Bad Type"
	if _, ok := fieldErrors(t, mustFail(t, svc, in))["target_type"]; !ok {
		t.Error("malformed type accepted")
	}

	list, _ := svc.List(context.Background(), "")
	if len(list) != 0 {
		t.Errorf("rejected inputs were written: %d rows", len(list))
	}
}

func TestCreate_MalformedJSON(t *testing.T) {
	in := validInput()
	in.Document = "{not valid json"

	lenient, _ := newService(t, Config{})
	if _, err := lenient.Create(context.Background(), in); err != nil {
		t.Errorf("lenient service rejected malformed JSON: %v", err)
	}

	strict, _ := newService(t, Config{StrictJSON: true})
	verrs := fieldErrors(t, mustFail(t, strict, in))
	if msg := verrs["document"]; msg == nil || !strings.Contains(msg.Error(), "JSON") {
		t.Errorf("document error = %v", msg)
	}
}

func TestUpdate(t *testing.T) {
	svc, ev := newService(t, Config{})
	ctx := context.Background()
	rec, _ := svc.Create(ctx, validInput())

	in := Input{TargetType: "page", Target: "all", Label: "Organization", Document: `{"@type":"Organization"}`}
	got, err := svc.Update(ctx, rec.ID, in)
	if err != nil {
		t.Fatal(err)
	}
	if got.Label != "Organization" || got.Target.Kind != models.SelectorAllOfType || got.TargetType != "page" {
		t.Errorf("unexpected record %+v", got)
	}
	if ev.events[len(ev.events)-1] != EventUpdated {
		t.Errorf("events = %v", ev.events)
	}

	if _, err := svc.Update(ctx, 999, in); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("update missing: expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	svc, ev := newService(t, Config{})
	ctx := context.Background()
	rec, _ := svc.Create(ctx, validInput())

	if err := svc.Delete(ctx, rec.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(ctx, rec.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("get after delete: %v", err)
	}
	if err := svc.Delete(ctx, rec.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
	if got := strings.Join(ev.events, ","); got != EventCreated+","+EventDeleted {
		t.Errorf("events = %s", got)
	}
}

func TestPreview(t *testing.T) {
	svc, _ := newService(t, Config{})
	ctx := context.Background()
	rec, _ := svc.Create(ctx, validInput())

	p, err := svc.Preview(ctx, rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !p.Valid || !strings.Contains(p.Pretty, "\n  \"headline\": \"x\"") {
		t.Errorf("preview = %+v", p)
	}

	in := validInput()
	in.Document = "{broken"
	bad, _ := svc.Create(ctx, in)
	p, _ = svc.Preview(ctx, bad.ID)
	if p.Valid || p.Pretty != "{broken" {
		t.Errorf("malformed preview = %+v", p)
	}

	if _, err := svc.Preview(ctx, 999); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestList_EmptyIsNonNil(t *testing.T) {
	svc, _ := newService(t, Config{})
	list, err := svc.List(context.Background(), "-id")
	if err != nil {
		t.Fatal(err)
	}
	if list == nil {
		t.Error("List returned nil slice")
	}
}

func mustFail(t *testing.T, svc *Service, in Input) error {
	t.Helper()
	_, err := svc.Create(context.Background(), in)
	if err == nil {
		t.Fatal("expected validation error")
	}
	return err
}
