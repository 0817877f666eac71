package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arborio/statecraft"
	"github.com/arborio/statecraft/interpreter"
	"github.com/arborio/statecraft/internal/model"
	"github.com/arborio/statecraft/production"
)

// buildDefinition wires a traffic light whose "red" phase runs a
// parallel pedestrian-crossing region alongside it: the light only
// leaves red once the pedestrian walk/wait cycle also reaches its
// Final state and raises the region's done event.
func buildDefinition() (*model.Definition, error) {
	b := statecraft.NewBuilder("traffic")
	root := b.Root()

	light := root.Compound("light").Initial("red")
	red := light.Compound("red").Initial("crossing")

	crossing := red.Parallel("crossing")
	walkRegion := crossing.Compound("pedestrian").Initial("walk")
	walkRegion.Atomic("walk").After("walkTime", []string{"traffic.light.red.crossing.pedestrian.wait"})
	walkRegion.Atomic("wait").After("waitTime", []string{"traffic.light.red.crossing.pedestrian.done"})
	walkRegion.Final("done")

	light.Atomic("green").After("greenTime", []string{"traffic.light.yellow"})
	light.Atomic("yellow").After("yellowTime", []string{"traffic.light.red"})

	red.On("done.state.traffic.light.red.crossing", nil, statecraft.WithActions(model.Raise("ADVANCE")))
	red.On("ADVANCE", []string{"traffic.light.green"})

	return b.Build()
}

func main() {
	def, err := buildDefinition()
	if err != nil {
		panic(err)
	}

	persister, err := production.NewJSONPersister(os.TempDir())
	if err != nil {
		panic(err)
	}
	publishCh := make(chan production.PublishedEvent, 100)
	publisher := production.NewChannelPublisher(publishCh)
	visualizer := &production.DefaultVisualizer{}

	ip := interpreter.New(nil, nil)
	m := statecraft.NewMachine("traffic-1", def,
		statecraft.WithActionRunner(ip),
		statecraft.WithPersister(persister),
		statecraft.WithPublisher(publisher),
		statecraft.WithVisualizer(visualizer),
		statecraft.WithDelays(map[string]time.Duration{
			"walkTime":   2 * time.Second,
			"waitTime":   1 * time.Second,
			"greenTime":  3 * time.Second,
			"yellowTime": 1 * time.Second,
		}),
	)
	ip.Attach(m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	state, err := ip.Start(ctx)
	if err != nil {
		panic(err)
	}
	fmt.Println("initial:", state.ToStrings())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for cycles := 0; cycles < 40; cycles++ {
		select {
		case <-ticker.C:
			fmt.Printf("cycle %d: %v\n", cycles, m.Current().ToStrings())
		case err := <-ip.Errs():
			fmt.Println("interpreter error:", err)
		case pub := <-publishCh:
			fmt.Println("published:", pub.Event.Name)
		case <-sig:
			fmt.Println("shutting down")
			ip.Stop()
			return
		}
	}
	ip.Stop()
}
