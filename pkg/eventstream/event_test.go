package eventstream_test

import (
	"encoding/json"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ambient/pkg/eventstream"
	"github.com/papercomputeco/ambient/pkg/ledger"
)

func TestEventstream(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Eventstream Suite")
}

var _ = Describe("Event", func() {
	It("builds an event carrying turn metadata but not content", func() {
		event := eventstream.NewTurnCapturedEvent(&ledger.Turn{
			ID:         42,
			ExternalID: "msg-9",
			Channel:    "discord",
			Author:     "sam",
			Content:    "a rather private message",
			IsAgent:    false,
		})

		Expect(event.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
		Expect(event.EventType).To(Equal(eventstream.EventTypeTurnCaptured))
		Expect(event.EventID).NotTo(BeEmpty())
		Expect(event.TurnID).To(Equal(int64(42)))
		Expect(event.ContentChars).To(Equal(len("a rather private message")))

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(payload)).NotTo(ContainSubstring("private message"))

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())
		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKey("event_type"))
		Expect(got).To(HaveKey("channel"))
		Expect(got).To(HaveKey("content_chars"))
	})

	It("defines stable event constants", func() {
		Expect(eventstream.SchemaVersionV1).To(BeNumerically(">", 0))
		Expect(eventstream.EventTypeTurnCaptured).To(Equal("ambient.turn.captured"))
	})

	It("provides ErrNilTurnEvent for nil payload validation", func() {
		Expect(eventstream.ErrNilTurnEvent).To(MatchError("nil turn event"))
	})
})
