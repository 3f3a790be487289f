package mqtt

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/tellocmd/core/cockpit"
	"github.com/kilianp07/tellocmd/test/util"
)

func TestBridgeAgainstBroker(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	broker, cleanup, err := util.StartMosquitto(ctx)
	if err != nil {
		t.Skipf("mosquitto unavailable: %v", err)
	}
	defer cleanup()

	fc := newFakeCockpit()
	b, err := NewBridge(Config{Enabled: true, Broker: broker, TopicPrefix: "it"}, fc)
	require.NoError(t, err)
	defer b.Close()

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() { _ = b.Run(runCtx) }()

	statuses := make(chan cockpit.Status, 4)
	probe := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("it-probe"))
	token := probe.Connect()
	require.True(t, token.WaitTimeout(5*time.Second))
	require.NoError(t, token.Error())
	defer probe.Disconnect(100)

	token = probe.Subscribe("it/status", 1, func(_ paho.Client, m paho.Message) {
		var st cockpit.Status
		if json.Unmarshal(m.Payload(), &st) == nil {
			statuses <- st
		}
	})
	require.True(t, token.WaitTimeout(5*time.Second))
	require.NoError(t, token.Error())

	select {
	case st := <-statuses:
		require.Equal(t, "Drone: offline", st.Line)
	case <-time.After(5 * time.Second):
		t.Fatal("retained status not received")
	}

	token = probe.Publish("it/controls/comm", 1, false, "")
	require.True(t, token.WaitTimeout(5*time.Second))
	require.Eventually(t, func() bool {
		calls := fc.Calls()
		return len(calls) == 1 && calls[0] == "comm"
	}, 5*time.Second, 20*time.Millisecond)
}
