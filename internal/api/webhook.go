package api

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"encoding/xml"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/clipforge/clipforge/internal/httputil"
)

// atomFeed is the subset of a PubSubHubbub push notification we care
// about. yt:videoId carries the uploaded video's identifier.
type atomFeed struct {
	XMLName xml.Name `xml:"feed"`
	Entries []struct {
		VideoID   string `xml:"videoId"`
		ChannelID string `xml:"channelId"`
	} `xml:"entry"`
}

// handleWebhookChallenge answers the hub's subscription verification by
// echoing hub.challenge back as plain text.
func (s *Server) handleWebhookChallenge(w http.ResponseWriter, r *http.Request) {
	challenge := r.URL.Query().Get("hub.challenge")
	if challenge == "" {
		httputil.WriteError(w, http.StatusBadRequest, "missing hub.challenge")
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, challenge)
}

// handleWebhookNotify ingests a push notification. When a hub secret is
// configured the X-Hub-Signature header must carry a valid sha1 HMAC of
// the raw body.
func (s *Server) handleWebhookNotify(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	if s.config.HubSecret != "" {
		if !verifyHubSignature(r.Header.Get("X-Hub-Signature"), body, s.config.HubSecret) {
			log.Printf("Webhook: rejected notification with bad signature")
			httputil.WriteError(w, http.StatusForbidden, "invalid signature")
			return
		}
	}

	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid atom feed")
		return
	}

	accepted := 0
	for _, entry := range feed.Entries {
		if entry.VideoID == "" {
			continue
		}
		if err := s.enqueueIngest(entry.VideoID, entry.ChannelID); err != nil {
			log.Printf("Webhook: failed to enqueue ingest for %s: %v", entry.VideoID, err)
			continue
		}
		accepted++
	}

	log.Printf("Webhook: accepted %d of %d entries", accepted, len(feed.Entries))
	w.WriteHeader(http.StatusAccepted)
}

// verifyHubSignature checks an "sha1=<hex>" header against the body HMAC.
func verifyHubSignature(header string, body []byte, secret string) bool {
	const prefix = "sha1="
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	want, err := hex.DecodeString(strings.TrimPrefix(header, prefix))
	if err != nil {
		return false
	}
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), want)
}
