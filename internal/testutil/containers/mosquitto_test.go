//go:build integration

//nolint:misspell // Mosquitto is the official Eclipse project name
package containers

import (
	"context"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMosquittoContainer_PublishSubscribe(t *testing.T) {
	ctx := t.Context()

	container, err := NewMosquittoContainer(ctx, nil)
	require.NoError(t, err, "failed to create Mosquitto container")
	t.Cleanup(func() {
		assert.NoError(t, container.Terminate(context.Background()))
	})

	sub, err := container.CreateClient("subscriber")
	require.NoError(t, err)
	defer sub.Disconnect(250)

	received := make(chan string, 1)
	token := sub.Subscribe("devices/+/data", 1, func(_ mqtt.Client, msg mqtt.Message) {
		received <- string(msg.Payload())
	})
	require.True(t, token.WaitTimeout(5*time.Second), "subscribe timeout")
	require.NoError(t, token.Error())

	pub, err := container.CreateClient("publisher")
	require.NoError(t, err)
	defer pub.Disconnect(250)

	token = pub.Publish("devices/dev-1/data", 1, false, []byte(`{"d":"dev-1"}`))
	require.True(t, token.WaitTimeout(5*time.Second), "publish timeout")
	require.NoError(t, token.Error())

	select {
	case payload := <-received:
		assert.JSONEq(t, `{"d":"dev-1"}`, payload)
	case <-time.After(5 * time.Second):
		t.Fatal("message was not delivered")
	}
}
