package mqtt

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kilianp07/rosterd/core/events"
	"github.com/kilianp07/rosterd/core/model"
	"github.com/kilianp07/rosterd/internal/eventbus"
)

// TestIntakeIntegration runs the intake against a real Mosquitto broker.
func TestIntakeIntegration(t *testing.T) {
	if os.Getenv("DOCKER_AVAILABLE") != "true" && os.Getenv("DOCKER_AVAILABLE") != "1" {
		t.Skip("docker not available")
	}
	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start container: %v", err)
	}
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate container: %v", err)
		}
	}()

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "1883")
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	broker := fmt.Sprintf("tcp://%s:%s", host, port.Port())

	bus := eventbus.New[events.IncidentEvent](4)
	sub := bus.Subscribe()

	var in *IncidentIntake
	for i := 0; i < 5; i++ {
		in, err = NewIncidentIntake(Config{Broker: broker, ClientID: "intake-test"}, bus)
		if err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("failed to connect intake: %v", err)
	}
	defer in.Close()

	pub := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("intake-test-pub"))
	if token := pub.Connect(); token.Wait() && token.Error() != nil {
		t.Fatalf("publisher connect: %v", token.Error())
	}
	defer pub.Disconnect(250)

	payload := `{"type":"NO_SHOW","driver_id":"d1","from":"2026-03-03T00:00:00Z","to":"2026-03-04T00:00:00Z"}`
	// The subscription is established asynchronously by the OnConnect hook,
	// so retry until the message makes it through.
	deadline := time.After(10 * time.Second)
	for {
		if token := pub.Publish("roster/incidents", 0, false, payload); token.Wait() && token.Error() != nil {
			t.Fatalf("publish: %v", token.Error())
		}
		select {
		case ev := <-sub:
			if ev.Incident.DriverID != "d1" || ev.Incident.Type != model.IncidentNoShow {
				t.Fatalf("decoded incident mangled: %+v", ev.Incident)
			}
			return
		case <-time.After(500 * time.Millisecond):
		case <-deadline:
			t.Fatal("timeout waiting for incident event")
		}
	}
}
