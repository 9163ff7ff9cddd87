package battery

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"codeberg.org/mutker/pipdrain/internal/errors"
)

// DefaultRoot is where the kernel exposes power supplies.
const DefaultRoot = "/sys/class/power_supply"

// Reading is the charge state of one battery.
type Reading struct {
	Name    string
	Percent int
	Status  string
}

// Discharging reports whether the battery is running the machine.
func (r Reading) Discharging() bool {
	return strings.EqualFold(r.Status, "Discharging")
}

// Reader reads the first battery found under a power_supply root.
type Reader struct {
	root string

	mu    sync.Mutex
	start *Reading
}

func NewReader(root string) *Reader {
	if root == "" {
		root = DefaultRoot
	}
	return &Reader{root: root}
}

func (r *Reader) Read() (Reading, error) {
	errFactory := errors.New()

	dirs, err := filepath.Glob(filepath.Join(r.root, "BAT*"))
	if err != nil {
		return Reading{}, errFactory.Wrap(errors.ErrReadBattery, err)
	}
	if len(dirs) == 0 {
		return Reading{}, errFactory.WithData(ErrNoBattery, r.root)
	}
	sort.Strings(dirs)
	dir := dirs[0]

	raw, err := os.ReadFile(filepath.Join(dir, "capacity"))
	if err != nil {
		return Reading{}, errFactory.Wrap(errors.ErrReadBattery, err)
	}
	percent, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil || percent < 0 || percent > 100 {
		return Reading{}, errFactory.WithData(ErrInvalidCapacity, strings.TrimSpace(string(raw)))
	}

	status := "Unknown"
	if raw, err := os.ReadFile(filepath.Join(dir, "status")); err == nil {
		status = strings.TrimSpace(string(raw))
	}

	reading := Reading{Name: filepath.Base(dir), Percent: percent, Status: status}

	r.mu.Lock()
	if r.start == nil {
		first := reading
		r.start = &first
	}
	r.mu.Unlock()

	return reading, nil
}

// Drained returns the percentage points lost since the first successful
// Read. It is negative while charging.
func (r *Reader) Drained(current Reading) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.start == nil {
		return 0
	}
	return r.start.Percent - current.Percent
}
