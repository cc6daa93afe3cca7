package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"gopkg.in/yaml.v3"

	"github.com/i5heu/GoBoundedFifo/internal/queue"
	"github.com/i5heu/GoBoundedFifo/internal/testbench"
	"github.com/i5heu/GoBoundedFifo/pkg/boundedfifo"
	"github.com/i5heu/GoBoundedFifo/pkg/chanfifo"
)

// BenchmarkResult holds results for one test run.
type BenchmarkResult struct {
	Implementation string  `json:"implementation"`
	NumProducers   int     `json:"num_producers"`
	Capacity       uint64  `json:"capacity"`
	NumMessages    int64   `json:"num_messages"`          // successfully pushed
	NumConsumed    int64   `json:"num_messages_consumed"` // popped (== pushed after drain)
	NumFull        int64   `json:"num_rejected_full"`
	NumLocked      int64   `json:"num_rejected_locked"`
	NumPreempted   int64   `json:"num_rejected_preempted"`
	TestDuration   string  `json:"test_duration"`
	ActualElapsed  string  `json:"actual_elapsed"`
	Throughput     float64 `json:"throughput_msgs_sec"` // based on consumed count
	Timestamp      int64   `json:"timestamp"`
	GoVersion      string  `json:"go_version"`
}

// SystemInfo holds system information.
type SystemInfo struct {
	NumCPU            int     `json:"num_cpu"`
	TrueCPU           int     `json:"true_cpu,omitempty"`
	SimulatedCPUCount int     `json:"simulated_cpu_count,omitempty"`
	CPUModel          string  `json:"cpu_model,omitempty"`
	CPUSpeedMHz       float64 `json:"cpu_speed_mhz,omitempty"`
	GOARCH            string  `json:"go_arch"`
	TotalMemory       uint64  `json:"total_memory_bytes,omitempty"`
}

// FullReport represents a complete test session.
type FullReport struct {
	SessionTime string            `json:"session_time"`
	SystemInfo  SystemInfo        `json:"system_info"`
	Benchmarks  []BenchmarkResult `json:"benchmarks"`
}

// duration wraps time.Duration so YAML configs can say "5s" or "250ms".
type duration time.Duration

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = duration(parsed)
	return nil
}

// BenchConfig is the optional YAML configuration for a session. Flags fill
// in anything the file leaves out.
type BenchConfig struct {
	Iterations int      `yaml:"iterations"`
	Duration   duration `yaml:"duration"`
	Capacity   uint64   `yaml:"capacity"`
	Producers  []int    `yaml:"producers"`
}

func defaultBenchConfig() BenchConfig {
	return BenchConfig{
		Iterations: 5,
		Duration:   duration(5 * time.Second),
		Capacity:   1024,
		Producers:  []int{1, 2, 4, 10, 50},
	}
}

func loadBenchConfig(path string) (BenchConfig, error) {
	cfg := defaultBenchConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	if cfg.Iterations < 1 || cfg.Capacity < 1 || cfg.Duration <= 0 || len(cfg.Producers) == 0 {
		return cfg, fmt.Errorf("%s: iterations, capacity and producers must all be positive", path)
	}
	for _, p := range cfg.Producers {
		if p < 1 {
			return cfg, fmt.Errorf("%s: producer counts must be positive", path)
		}
	}
	return cfg, nil
}

// Implementation represents one queue implementation under test.
type Implementation struct {
	name        string
	description string
	pkgName     string
	features    []string
	newQueue    func(capacity uint64) queue.ContractInterface[*int]
}

// getImplementations enumerates the queue implementations.
func getImplementations() []Implementation {
	return []Implementation{
		{
			name:        "BoundedQueue",
			pkgName:     "boundedfifo",
			description: "Mutex plus condition variable circular buffer with non-blocking producer pushes.",
			features:    []string{"MPSC", "FIFO", "Try-Push", "Blocking-Pop"},
			newQueue: func(capacity uint64) queue.ContractInterface[*int] {
				return boundedfifo.New[*int](capacity)
			},
		},
		{
			name:        "Golang Buffered Channel",
			pkgName:     "chanfifo",
			description: "Baseline on a buffered channel; channel sends are atomic so it never reports LOCKED or PREEMPTED.",
			features:    []string{"MPSC", "FIFO", "Try-Push", "Blocking-Pop"},
			newQueue: func(capacity uint64) queue.ContractInterface[*int] {
				return chanfifo.New[*int](capacity)
			},
		},
	}
}

// outputMarkdownTable loads the JSON file and outputs a Markdown table.
func outputMarkdownTable(jsonFile string) {
	data, err := os.ReadFile(jsonFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading JSON file %q: %v\n", jsonFile, err)
		os.Exit(1)
	}
	var sessions []FullReport
	if err := json.Unmarshal(data, &sessions); err != nil {
		fmt.Fprintf(os.Stderr, "Error unmarshalling JSON: %v\n", err)
		os.Exit(1)
	}
	if len(sessions) == 0 {
		fmt.Fprintln(os.Stderr, "No sessions found in JSON.")
		os.Exit(1)
	}
	// Use the last session for the table.
	lastSession := sessions[len(sessions)-1]
	implMetaMap := make(map[string]Implementation)
	for _, impl := range getImplementations() {
		implMetaMap[impl.name] = impl
	}
	type tableRow struct {
		implementation string
		pkgName        string
		features       string
		producers      int
		throughput     float64
		rejected       int64
	}
	var rows []tableRow
	for _, bench := range lastSession.Benchmarks {
		meta := implMetaMap[bench.Implementation]
		rows = append(rows, tableRow{
			implementation: bench.Implementation,
			pkgName:        meta.pkgName,
			features:       strings.Join(meta.features, ", "),
			producers:      bench.NumProducers,
			throughput:     bench.Throughput,
			rejected:       bench.NumFull + bench.NumLocked + bench.NumPreempted,
		})
	}
	// Sort rows by throughput descending.
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].throughput > rows[j].throughput
	})
	fmt.Println("## Last Session Benchmark Summary")
	fmt.Println()
	fmt.Println("| Implementation           | Package         | Features                              | Producers | Throughput (msgs/sec) | Rejected pushes |")
	fmt.Println("|--------------------------|-----------------|---------------------------------------|-----------|-----------------------|-----------------|")
	for _, r := range rows {
		fmt.Printf("| %-24s | %-15s | %-37s | %9d | %21.0f | %15d |\n",
			r.implementation, r.pkgName, r.features, r.producers, r.throughput, r.rejected)
	}
}

func main() {
	// Flags.
	testIterations := flag.Int("iter", 0, "Number of test iterations per producer count (overrides config)")
	testDurationFlag := flag.Duration("duration", 0, "Duration of each iteration (overrides config)")
	capacityFlag := flag.Uint64("capacity", 0, "Queue capacity (overrides config)")
	cpuMaxFlag := flag.Int("cpu", 0, "If non-zero, test only that GOMAXPROCS value; if 0, test common CPU/vCPU values up to runtime.NumCPU()")
	configFile := flag.String("config", "", "Optional YAML config file with iterations/duration/capacity/producers")
	jsonExport := flag.Bool("json", false, "Export results as JSON to test-results.json")
	markdownTable := flag.Bool("markdown-table", false, "Output markdown table from test-results.json and exit")
	jsonFileForMarkdown := flag.String("jsonfile", "test-results.json", "Path to JSON file for markdown table")
	progressFlag := flag.Bool("progress", false, "Display a progress bar with ETA")
	flag.Parse()

	if *markdownTable {
		outputMarkdownTable(*jsonFileForMarkdown)
		return
	}

	cfg := defaultBenchConfig()
	if *configFile != "" {
		var err error
		cfg, err = loadBenchConfig(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	// Explicit flags win over the config file.
	if *testIterations > 0 {
		cfg.Iterations = *testIterations
	}
	if *testDurationFlag > 0 {
		cfg.Duration = duration(*testDurationFlag)
	}
	if *capacityFlag > 0 {
		cfg.Capacity = *capacityFlag
	}

	trueCpuCount := runtime.NumCPU()
	var cpuSettings []int
	// Define the common CPU/vCPU settings.
	commonCPUs := []int{1, 2, 3, 4, 6, 8, 12, 16, 32, 48, 56, 64, 96, 128, 192, 256}

	if *cpuMaxFlag > 0 {
		desired := *cpuMaxFlag
		if desired > trueCpuCount {
			desired = trueCpuCount
		}
		cpuSettings = []int{desired}
	} else {
		for _, v := range commonCPUs {
			if v <= trueCpuCount {
				cpuSettings = append(cpuSettings, v)
			}
		}
	}

	impls := getImplementations()
	totalTests := len(cpuSettings) * len(cfg.Producers) * cfg.Iterations * len(impls)
	var bar *progressbar.ProgressBar
	if *progressFlag {
		bar = progressbar.NewOptions(totalTests,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("benchmarking"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionClearOnFinish(),
		)
	}

	var allSessions []FullReport

	// Iterate over the desired GOMAXPROCS settings.
	for _, cpus := range cpuSettings {
		runtime.GOMAXPROCS(cpus)
		sysInfo := gatherSystemInfo()
		sysInfo.NumCPU = cpus
		sysInfo.TrueCPU = trueCpuCount
		sysInfo.SimulatedCPUCount = cpus

		fmt.Printf("\n=============================\n")
		fmt.Printf("GOMAXPROCS = %d\n", cpus)
		fmt.Printf("=============================\n")

		var results []BenchmarkResult

		for _, producers := range cfg.Producers {
			fmt.Printf("  [Concurrency: producers=%d, consumers=1]\n", producers)
			for iteration := 1; iteration <= cfg.Iterations; iteration++ {
				fmt.Printf("    iteration %d/%d\n", iteration, cfg.Iterations)
				for _, impl := range impls {
					runtime.GC()
					q := impl.newQueue(cfg.Capacity)
					time.Sleep(250 * time.Millisecond)

					tally := testbench.RunTimedTest(
						q,
						testbench.Config{NumProducers: producers},
						time.Duration(cfg.Duration),
						func(i int) *int {
							v := i
							return &v
						},
					)
					throughput := float64(tally.Consumed) / tally.Elapsed.Seconds()

					fmt.Printf("    %s => pushed=%d, popped=%d, full=%d, locked=%d, preempted=%d, throughput=%.0f msg/s, took=%v\n",
						impl.name, tally.Produced, tally.Consumed,
						tally.Full, tally.Locked, tally.Preempted,
						throughput, tally.Elapsed)

					if bar != nil {
						bar.Add(1)
					}

					results = append(results, BenchmarkResult{
						Implementation: impl.name,
						NumProducers:   producers,
						Capacity:       cfg.Capacity,
						NumMessages:    tally.Produced,
						NumConsumed:    tally.Consumed,
						NumFull:        tally.Full,
						NumLocked:      tally.Locked,
						NumPreempted:   tally.Preempted,
						TestDuration:   time.Duration(cfg.Duration).String(),
						ActualElapsed:  tally.Elapsed.String(),
						Throughput:     throughput,
						Timestamp:      time.Now().Unix(),
						GoVersion:      runtime.Version(),
					})
				}
			}
		}

		allSessions = append(allSessions, FullReport{
			SessionTime: time.Now().Format(time.RFC3339),
			SystemInfo:  sysInfo,
			Benchmarks:  results,
		})
	}

	if bar != nil {
		bar.Finish()
		fmt.Fprintln(os.Stderr)
	}

	// If JSON export is requested, append the new sessions to test-results.json.
	if *jsonExport {
		const filename = "test-results.json"
		var previous []FullReport
		if _, err := os.Stat(filename); err == nil {
			data, err := os.ReadFile(filename)
			if err == nil && len(data) > 0 {
				json.Unmarshal(data, &previous)
			}
		}
		updated := append(previous, allSessions...)
		data, err := json.MarshalIndent(updated, "", "  ")
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error marshalling JSON:", err)
			os.Exit(1)
		}
		if err = os.WriteFile(filename, data, 0644); err != nil {
			fmt.Fprintln(os.Stderr, "Error writing JSON file:", err)
			os.Exit(1)
		}
		fmt.Printf("\nWrote results to %s\n", filename)
	}
}

// gatherSystemInfo collects basic CPU and memory details.
func gatherSystemInfo() SystemInfo {
	numCPU := runtime.NumCPU()
	goArch := runtime.GOARCH

	var cpuModel string
	var cpuSpeed float64
	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		cpuModel = infos[0].ModelName
		cpuSpeed = infos[0].Mhz
	}

	var totalMemory uint64
	if vm, err := mem.VirtualMemory(); err == nil {
		totalMemory = vm.Total
	}

	return SystemInfo{
		NumCPU:      numCPU,
		CPUModel:    cpuModel,
		CPUSpeedMHz: cpuSpeed,
		GOARCH:      goArch,
		TotalMemory: totalMemory,
	}
}
