package common_test

import (
	"testing"

	"github.com/crosstalk-dev/crosstalk/pkg/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelDelivers(t *testing.T) {
	sender, receiver := common.NewChannel[string](2)

	assert.Nil(t, sender.Send("one"))
	assert.Nil(t, sender.Send("two"))

	assert.Equal(t, "one", <-receiver.Channel)
	assert.Equal(t, "two", <-receiver.Channel)
}

func TestChannelSendAfterClose(t *testing.T) {
	sender, receiver := common.NewChannel[int](1)
	receiver.Close()

	rejected := sender.Send(42)
	require.NotNil(t, rejected)
	assert.Equal(t, 42, *rejected)
}

func TestChannelTrySendWhenFull(t *testing.T) {
	sender, receiver := common.NewChannel[int](1)

	assert.Nil(t, sender.TrySend(1))
	rejected := sender.TrySend(2)
	require.NotNil(t, rejected)
	assert.Equal(t, 2, *rejected)

	// Draining frees capacity again.
	assert.Equal(t, 1, <-receiver.Channel)
	assert.Nil(t, sender.TrySend(3))
}

func TestChannelBufferedMessagesSurviveClose(t *testing.T) {
	sender, receiver := common.NewChannel[int](2)

	assert.Nil(t, sender.Send(1))
	receiver.Close()

	assert.Equal(t, 1, <-receiver.Channel)
	assert.NotNil(t, sender.TrySend(2))
}
