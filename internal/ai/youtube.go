package ai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
)

var videoIDPattern = regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/)([^&\n?#]+)`)

func extractVideoID(url string) string {
	m := videoIDPattern.FindStringSubmatch(url)
	if m == nil {
		return ""
	}
	return m[1]
}

// transcriptBaseURL is swapped out in tests.
var transcriptBaseURL = "https://www.youtube.com/api/timedtext"

func (c *Client) fetchTranscript(ctx context.Context, youtubeURL string) (string, error) {
	videoID := extractVideoID(youtubeURL)
	if videoID == "" {
		return "", fmt.Errorf("no video id in url %q", youtubeURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s?v=%s&lang=en", transcriptBaseURL, videoID), nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcript fetch: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if len(body) == 0 {
		return "", fmt.Errorf("empty transcript for video %s", videoID)
	}
	return string(body), nil
}

// GenerateExplanation summarizes the video behind youtubeURL. It never
// fails: when the collaborator is unconfigured or unavailable the faculty
// member gets placeholder text to replace from the dashboard.
func (c *Client) GenerateExplanation(ctx context.Context, youtubeURL string) string {
	if !c.Configured() {
		return fallbackExplanation(youtubeURL)
	}
	transcript, err := c.fetchTranscript(ctx, youtubeURL)
	if err != nil {
		c.log.Warn("transcript fetch failed", "url", youtubeURL, "err", err)
		return fallbackExplanation(youtubeURL)
	}
	out, err := c.complete(ctx, summarySystemPrompt, summaryUserPrompt(transcript), 0.7, 500)
	if err != nil {
		c.log.Warn("explanation generation failed", "url", youtubeURL, "err", err)
		return fallbackExplanation(youtubeURL)
	}
	return out
}

func fallbackExplanation(youtubeURL string) string {
	link := youtubeURL
	if id := extractVideoID(youtubeURL); id != "" {
		link = "https://youtu.be/" + id
	}
	return fmt.Sprintf("No description was provided. Please watch the reference video (%s) and update this description from the Faculty dashboard.", link)
}
