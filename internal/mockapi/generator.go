package mockapi

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/acqdash/console/internal/api"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MissingMediaPrefix marks cover references the media endpoint answers
// with 404.
const MissingMediaPrefix = "missing-"

var (
	deviceGroups = []string{"rack-a", "rack-b", "rack-c", "rack-d", "shelf-1", "shelf-2"}
	deviceModels = []struct{ model, os string }{
		{"Pixel 7", "Android 14"},
		{"Pixel 6a", "Android 14"},
		{"Galaxy A54", "Android 13"},
		{"Galaxy S21", "Android 13"},
		{"Redmi Note 12", "Android 13"},
		{"Moto G84", "Android 14"},
	}
	deviceTasks = []string{"warmup", "post reel", "follow batch", "comment sweep", "story upload", "profile edit"}

	handleWords = []string{"sunrise", "urban", "cozy", "daily", "pixel", "golden", "wild", "minimal", "retro", "fresh"}
	handleNouns = []string{"shop", "finds", "studio", "kitchen", "deals", "looks", "garden", "threads", "beauty", "tech"}

	scenarioTopics = []string{
		"Cold start warmup", "Hashtag ladder", "Reel repost loop", "Comment seeding",
		"Follow/unfollow sweep", "Story cadence", "Bio link rotation", "Niche takeover",
	}
)

// GeneratorConfig sizes the seeded fleet and its churn.
type GeneratorConfig struct {
	Devices      int
	Accounts     int
	Scenarios    int
	Seed         int64
	TickInterval time.Duration
	// FlipsPerTick is how many devices change status per tick.
	FlipsPerTick int
}

// Generator seeds the store deterministically and then mutates random
// devices on every tick.
type Generator struct {
	store       *Store
	broadcaster *Broadcaster
	cfg         GeneratorConfig
	rng         *rand.Rand
	ids         []string
	tick        int
	log         zerolog.Logger
}

func NewGenerator(store *Store, broadcaster *Broadcaster, cfg GeneratorConfig, log zerolog.Logger) *Generator {
	if cfg.FlipsPerTick <= 0 {
		cfg.FlipsPerTick = max(1, cfg.Devices/100)
	}
	return &Generator{
		store:       store,
		broadcaster: broadcaster,
		cfg:         cfg,
		rng:         rand.New(rand.NewSource(cfg.Seed)),
		log:         log.With().Str("component", "generator").Logger(),
	}
}

// Populate fills the store. The same seed yields the same entities.
func (g *Generator) Populate(now time.Time) {
	perDevice := make(map[string]int)

	for i := 0; i < g.cfg.Devices; i++ {
		d := g.newDevice(i, now)
		g.ids = append(g.ids, d.ID)
		g.store.UpdateDevice(d)
	}

	accounts := make([]api.Account, 0, g.cfg.Accounts)
	for i := 0; i < g.cfg.Accounts; i++ {
		a := g.newAccount(i, now)
		perDevice[a.DeviceID]++
		accounts = append(accounts, a)
	}
	g.store.SetAccounts(accounts)
	for id, n := range perDevice {
		d, _ := g.store.GetDevice(id)
		d.Accounts = n
		g.store.UpdateDevice(d)
	}

	scenarios := make([]api.Scenario, 0, g.cfg.Scenarios)
	for i := 0; i < g.cfg.Scenarios; i++ {
		scenarios = append(scenarios, g.newScenario(i, now))
	}
	g.store.SetScenarios(scenarios)

	g.log.Info().
		Int("devices", g.cfg.Devices).
		Int("accounts", g.cfg.Accounts).
		Int("scenarios", g.cfg.Scenarios).
		Int64("seed", g.cfg.Seed).
		Msg("fleet seeded")
}

// Start populates the store and churns devices until ctx is done.
func (g *Generator) Start(ctx context.Context) {
	g.Populate(time.Now().UTC())
	if g.cfg.TickInterval > 0 && len(g.ids) > 0 {
		go g.run(ctx)
	}
}

func (g *Generator) run(ctx context.Context) {
	ticker := time.NewTicker(g.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			g.Tick(now.UTC())
		}
	}
}

// Tick changes FlipsPerTick devices and queues them for broadcast.
func (g *Generator) Tick(now time.Time) []api.Device {
	if len(g.ids) == 0 {
		return nil
	}
	g.tick++

	changed := make([]api.Device, 0, g.cfg.FlipsPerTick)
	for i := 0; i < g.cfg.FlipsPerTick; i++ {
		d, ok := g.store.GetDevice(g.ids[g.rng.Intn(len(g.ids))])
		if !ok {
			continue
		}
		g.advance(&d, now)
		g.store.UpdateDevice(d)
		changed = append(changed, d)
	}
	if g.broadcaster != nil {
		g.broadcaster.QueueUpdate(changed)
	}
	return changed
}

// advance moves a device one step through online -> busy -> online, with
// occasional drops to offline or error.
func (g *Generator) advance(d *api.Device, now time.Time) {
	d.LastSeenAt = now
	roll := g.rng.Intn(100)

	switch d.Status {
	case api.DeviceOnline:
		switch {
		case roll < 60:
			d.Status = api.DeviceBusy
			d.Task = g.task()
		case roll < 70:
			d.Status = api.DeviceOffline
		}
		d.Battery = min(100, d.Battery+g.rng.Intn(4))
	case api.DeviceBusy:
		switch {
		case roll < 50:
			d.Status = api.DeviceOnline
			d.Task = ""
		case roll < 58:
			d.Status = api.DeviceError
		}
		d.Battery = max(1, d.Battery-1-g.rng.Intn(3))
	case api.DeviceOffline, api.DeviceError:
		if roll < 40 {
			d.Status = api.DeviceOnline
			d.Task = ""
		}
	}
	if d.Battery < 5 {
		d.Status = api.DeviceOffline
		d.Task = ""
	}
}

func (g *Generator) newID() string {
	id, err := uuid.NewRandomFromReader(g.rng)
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (g *Generator) newDevice(i int, now time.Time) api.Device {
	m := deviceModels[g.rng.Intn(len(deviceModels))]
	group := deviceGroups[i%len(deviceGroups)]
	d := api.Device{
		ID:         g.newID(),
		Name:       fmt.Sprintf("%s-%03d", group, i/len(deviceGroups)+1),
		Model:      m.model,
		OSVersion:  m.os,
		Group:      group,
		Status:     g.initialStatus(),
		Battery:    5 + g.rng.Intn(96),
		LastSeenAt: now.Add(-time.Duration(g.rng.Intn(600)) * time.Second),
	}
	if d.Status == api.DeviceBusy {
		d.Task = g.task()
	}
	return d
}

func (g *Generator) initialStatus() api.DeviceStatus {
	switch roll := g.rng.Intn(100); {
	case roll < 60:
		return api.DeviceOnline
	case roll < 85:
		return api.DeviceBusy
	case roll < 95:
		return api.DeviceOffline
	default:
		return api.DeviceError
	}
}

func (g *Generator) task() string {
	return fmt.Sprintf("%s #%d", deviceTasks[g.rng.Intn(len(deviceTasks))], 1+g.rng.Intn(40))
}

func (g *Generator) newAccount(i int, now time.Time) api.Account {
	a := api.Account{
		ID: g.newID(),
		Handle: fmt.Sprintf("@%s.%s%d",
			handleWords[g.rng.Intn(len(handleWords))],
			handleNouns[g.rng.Intn(len(handleNouns))],
			i),
		Platform:  api.AllPlatforms[g.rng.Intn(len(api.AllPlatforms))],
		Followers: g.rng.Intn(80_000),
		Posts:     g.rng.Intn(400),
		Banned:    g.rng.Intn(100) < 3,
		CreatedAt: now.Add(-time.Duration(g.rng.Intn(365*24)) * time.Hour),
	}
	if len(g.ids) > 0 {
		a.DeviceID = g.ids[g.rng.Intn(len(g.ids))]
	}
	return a
}

func (g *Generator) newScenario(i int, now time.Time) api.Scenario {
	topic := scenarioTopics[i%len(scenarioTopics)]
	steps := 3 + g.rng.Intn(5)
	id := g.newID()

	cover := id + ".png"
	// Every seventh cover is unavailable so clients exercise their fallback.
	if i%7 == 3 {
		cover = MissingMediaPrefix + cover
	}

	var body strings.Builder
	fmt.Fprintf(&body, "**%s** across %d accounts.\n\n", topic, 5+g.rng.Intn(50))
	for s := 1; s <= steps; s++ {
		fmt.Fprintf(&body, "%d. %s for %d minutes\n", s, deviceTasks[g.rng.Intn(len(deviceTasks))], 5+g.rng.Intn(55))
	}

	return api.Scenario{
		ID:        id,
		Title:     fmt.Sprintf("%s %d", topic, i/len(scenarioTopics)+1),
		Summary:   fmt.Sprintf("%d steps, tuned for %s", steps, api.AllPlatforms[i%len(api.AllPlatforms)]),
		Body:      body.String(),
		CoverURL:  "/media/" + cover,
		Steps:     steps,
		Runs:      g.rng.Intn(500),
		UpdatedAt: now.Add(-time.Duration(g.rng.Intn(30*24)) * time.Hour),
	}
}
