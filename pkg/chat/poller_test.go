package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoller_ExtractsSubmissions(t *testing.T) {
	fake := newFakeTelegram(t)
	fake.addUpdate(1, "https://www.youtube.com/watch?v=dQw4w9WgXcQ the chorus please")
	fake.addUpdate(2, "just chatting, no link here")
	fake.addUpdate(3, "https://youtu.be/abc123")

	poller := NewPoller(fake.client())
	submissions, err := poller.Poll(context.Background())
	require.NoError(t, err)

	require.Len(t, submissions, 2)
	assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", submissions[0].URL)
	assert.Equal(t, "the chorus please", submissions[0].Topic)
	assert.Equal(t, int64(1), submissions[0].UpdateID)
	assert.Equal(t, "https://youtu.be/abc123", submissions[1].URL)
	assert.Empty(t, submissions[1].Topic)
}

func TestPoller_AdvancesOffsetAcrossPolls(t *testing.T) {
	fake := newFakeTelegram(t)
	fake.addUpdate(1, "https://youtu.be/first")

	poller := NewPoller(fake.client())

	first, err := poller.Poll(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Without new updates, a second poll yields nothing.
	second, err := poller.Poll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, second)

	fake.addUpdate(2, "https://youtu.be/second")
	third, err := poller.Poll(context.Background())
	require.NoError(t, err)
	require.Len(t, third, 1)
	assert.Equal(t, "https://youtu.be/second", third[0].URL)
}

func TestPoller_RecognizesShortsURLs(t *testing.T) {
	fake := newFakeTelegram(t)
	fake.addUpdate(1, "check this https://www.youtube.com/shorts/xyz789 out")

	submissions, err := NewPoller(fake.client()).Poll(context.Background())
	require.NoError(t, err)
	require.Len(t, submissions, 1)
	assert.Equal(t, "https://www.youtube.com/shorts/xyz789", submissions[0].URL)
	assert.Equal(t, "check this  out", submissions[0].Topic)
}
