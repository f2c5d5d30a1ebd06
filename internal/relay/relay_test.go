package relay

import (
	"testing"

	"github.com/OpenPrinting/goipp"

	"github.com/cyra/ippproxy/internal/ippclient"
	"github.com/cyra/ippproxy/internal/registry"
	"github.com/cyra/ippproxy/internal/relay/backend"
)

func newRegistryWithJobs(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New()

	canceled, _ := r.InsertIfAbsent(2, "ipp://example/jobs/2")
	canceled.RemoteState = registry.RemoteCanceled

	pending, _ := r.InsertIfAbsent(1, "ipp://example/jobs/1")
	pending.RemoteState = registry.RemotePending

	return r
}

func attr(name string, tag goipp.Tag, v goipp.Value) goipp.Attribute {
	return goipp.MakeAttribute(name, tag, v)
}

func TestFilterTicketAttrsKeepsOnlyKnownNames(t *testing.T) {
	ticket := goipp.Attributes{
		attr("job-name", goipp.TagName, goipp.String("report.pdf")),
		attr("copies", goipp.TagInteger, goipp.Integer(3)),
		attr("job-id", goipp.TagInteger, goipp.Integer(99)),
		attr("document-format", goipp.TagMimeType, goipp.String("application/pdf")),
	}

	out := filterTicketAttrs(ticket)

	names := map[string]bool{}
	for _, a := range out {
		names[a.Name] = true
	}
	if !names["job-name"] || !names["copies"] {
		t.Fatalf("expected job-name and copies to survive filtering, got %v", names)
	}
	if names["job-id"] || names["document-format"] {
		t.Fatalf("expected job-id and document-format to be filtered out, got %v", names)
	}
}

func TestChooseFormatPrefersPinnedMIMEType(t *testing.T) {
	w := &Worker{MIMEType: "application/vnd.hp-pcl"}
	if got := w.chooseFormat(); got != "application/vnd.hp-pcl" {
		t.Fatalf("chooseFormat() = %q, want pinned MIME type", got)
	}
}

func TestChooseFormatLeavesPDFUnstatedWhenSupported(t *testing.T) {
	attrs := goipp.Attributes{
		attr("document-format-supported", goipp.TagMimeType, goipp.String("application/pdf")),
	}
	w := &Worker{DeviceAttrs: attrs}
	if got := w.chooseFormat(); got != "" {
		t.Fatalf("chooseFormat() = %q, want empty (let the service choose pdf)", got)
	}
}

func TestChooseFormatFallsBackToPriorityList(t *testing.T) {
	attrs := goipp.Attributes{
		attr("document-format-supported", goipp.TagMimeType, goipp.String("image/pwg-raster")),
	}
	w := &Worker{DeviceAttrs: attrs}
	if got := w.chooseFormat(); got != "image/pwg-raster" {
		t.Fatalf("chooseFormat() = %q, want image/pwg-raster", got)
	}
}

func TestChooseFormatEmptyWhenNothingMatches(t *testing.T) {
	w := &Worker{DeviceAttrs: goipp.Attributes{}}
	if got := w.chooseFormat(); got != "" {
		t.Fatalf("chooseFormat() = %q, want empty", got)
	}
}

func TestMapBackendStateTranslatesTerminalStates(t *testing.T) {
	cases := map[backend.State]string{
		backend.StateCompleted: "completed",
		backend.StateCanceled:  "canceled",
		backend.StateAborted:   "aborted",
	}
	for state, want := range cases {
		if got := string(mapBackendState(state)); got != want {
			t.Errorf("mapBackendState(%v) = %v, want %v", state, got, want)
		}
	}
}

func TestTicketAttrsCombinesOperationAndJobGroups(t *testing.T) {
	resp := &goipp.Message{
		Operation: goipp.Attributes{attr("job-name", goipp.TagName, goipp.String("x"))},
		Job: []goipp.Attributes{
			{attr("copies", goipp.TagInteger, goipp.Integer(2))},
		},
	}
	out := ticketAttrs(resp)
	if _, ok := ippclient.GetString(out, "job-name"); !ok {
		t.Fatal("expected job-name to survive from the operation group")
	}
	if v, ok := ippclient.GetInt(out, "copies"); !ok || v != 2 {
		t.Fatalf("expected copies=2 from the job group, got %v, %v", v, ok)
	}
}

func TestClaimNextSkipsAlreadyCanceledJobs(t *testing.T) {
	w := &Worker{Registry: newRegistryWithJobs(t)}
	job := w.claimNext()
	if job == nil {
		t.Fatal("expected a claimable job")
	}
	if job.RemoteJobID != 1 {
		t.Fatalf("claimed job %d, want 1 (the non-canceled pending job)", job.RemoteJobID)
	}
}
