// README: Scenario cases for the order flow; includes HTTP, DB, Redis, race, and performance checks.
package main

import (
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "os"
    "regexp"
    "strings"
    "sync"
    "time"

    "github.com/jackc/pgx/v5/pgxpool"
    "github.com/redis/go-redis/v9"
    "github.com/shopspring/decimal"

    "feast/internal/infra"
)

type Runner struct {
    cfg   Config
    httpc *http.Client
    db    *pgxpool.Pool
    redis *redis.Client
    run   string
}

type Result struct {
    Name    string
    Status  string
    Latency time.Duration
    Note    string
}

type TestCase struct {
    Name  string
    Focus string
    Run   func(ctx context.Context, r *Runner) Result
}

// caller is a minted identity used for one or more requests.
type caller struct {
    identity infra.Identity
    token    string
}

type orderView struct {
    ID           string          `json:"id"`
    Status       string          `json:"status"`
    Total        decimal.Decimal `json:"total"`
    PointsEarned int64           `json:"pointsEarned"`
    RiderEmail   *string         `json:"riderEmail"`
}

type accountView struct {
    Email    string          `json:"email"`
    Points   int64           `json:"points"`
    XP       int64           `json:"xp"`
    Earnings decimal.Decimal `json:"earnings"`
}

func NewRunner(cfg Config) *Runner {
    return &Runner{
        cfg:   cfg,
        httpc: &http.Client{Timeout: 10 * time.Second},
        run:   fmt.Sprintf("%d", time.Now().UnixNano()),
    }
}

func (r *Runner) RunAll(ctx context.Context) []Result {
    if r.cfg.DSN != "" {
        if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
            r.db = db
        }
    }
    if r.cfg.RedisAddr != "" {
        r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
    }

    tests := r.cases()
    results := make([]Result, 0, len(tests))

    for _, tc := range tests {
        res := tc.Run(ctx, r)
        res.Name = tc.Name
        results = append(results, res)
        fmt.Printf("%-7s %s", res.Status, tc.Name)
        if res.Latency > 0 {
            fmt.Printf(" (%s)", res.Latency)
        }
        if res.Note != "" {
            fmt.Printf(" - %s", res.Note)
        }
        fmt.Println()
    }

    if r.db != nil {
        r.db.Close()
    }
    if r.redis != nil {
        _ = r.redis.Close()
    }

    return results
}

func (r *Runner) cases() []TestCase {
    base := r.cfg.BaseURL
    return []TestCase{
        {
            Name:  "Env: Postgres connect",
            Focus: "database reachable",
            Run: func(ctx context.Context, r *Runner) Result {
                if r.db == nil {
                    return Result{Status: "SKIP", Note: "db not configured"}
                }
                ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
                defer cancel()
                if err := r.db.Ping(ctx); err != nil {
                    return Result{Status: "FAIL", Note: err.Error()}
                }
                return Result{Status: "PASS"}
            },
        },
        {
            Name:  "Env: Redis connect",
            Focus: "cache and broadcast bus reachable",
            Run: func(ctx context.Context, r *Runner) Result {
                if r.redis == nil {
                    return Result{Status: "SKIP", Note: "redis not configured"}
                }
                ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
                defer cancel()
                if err := r.redis.Ping(ctx).Err(); err != nil {
                    return Result{Status: "FAIL", Note: err.Error()}
                }
                return Result{Status: "PASS"}
            },
        },
        {
            Name:  "Migration: apply (optional)",
            Focus: "apply migration SQL before the run",
            Run: func(ctx context.Context, r *Runner) Result {
                if !r.cfg.ApplyMigration {
                    return Result{Status: "SKIP", Note: "apply-migration=false"}
                }
                if r.db == nil {
                    return Result{Status: "FAIL", Note: "db not configured"}
                }
                sql, err := os.ReadFile(r.cfg.MigrationPath)
                if err != nil {
                    return Result{Status: "FAIL", Note: err.Error()}
                }
                for _, s := range splitSQL(string(sql)) {
                    if _, err := r.db.Exec(ctx, s); err != nil {
                        return Result{Status: "FAIL", Note: err.Error()}
                    }
                }
                return Result{Status: "PASS"}
            },
        },
        {
            Name:  "Migration: tables exist",
            Focus: "every table in the migration is present",
            Run: func(ctx context.Context, r *Runner) Result {
                if r.db == nil {
                    return Result{Status: "SKIP", Note: "db not configured"}
                }
                tables, err := extractTables(r.cfg.MigrationPath)
                if err != nil {
                    return Result{Status: "FAIL", Note: err.Error()}
                }
                for _, t := range tables {
                    var exists bool
                    err := r.db.QueryRow(ctx,
                        "SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)",
                        t,
                    ).Scan(&exists)
                    if err != nil {
                        return Result{Status: "FAIL", Note: err.Error()}
                    }
                    if !exists {
                        return Result{Status: "FAIL", Note: "missing table: " + t}
                    }
                }
                return Result{Status: "PASS"}
            },
        },
        {
            Name:  "API: health",
            Focus: "server reachable",
            Run: func(ctx context.Context, r *Runner) Result {
                start := time.Now()
                status, _, err := r.do(ctx, http.MethodGet, base+"/health", "", nil)
                if err != nil {
                    return Result{Status: "FAIL", Note: err.Error()}
                }
                if status != http.StatusOK {
                    return Result{Status: "FAIL", Note: fmt.Sprintf("status=%d", status)}
                }
                return Result{Status: "PASS", Latency: time.Since(start)}
            },
        },
        {
            Name:  "API: metrics exposed",
            Focus: "prometheus endpoint carries order counters",
            Run: func(ctx context.Context, r *Runner) Result {
                status, body, err := r.do(ctx, http.MethodGet, base+"/metrics", "", nil)
                if err != nil {
                    return Result{Status: "FAIL", Note: err.Error()}
                }
                if status != http.StatusOK || !bytes.Contains(body, []byte("feast_")) {
                    return Result{Status: "FAIL", Note: fmt.Sprintf("status=%d", status)}
                }
                return Result{Status: "PASS"}
            },
        },
        {
            Name:  "Auth: missing token -> 401",
            Focus: "api group requires a bearer token",
            Run: func(ctx context.Context, r *Runner) Result {
                status, _, err := r.do(ctx, http.MethodGet, base+"/api/me/live-order", "", nil)
                if err != nil {
                    return Result{Status: "FAIL", Note: err.Error()}
                }
                return expectStatus(status, http.StatusUnauthorized)
            },
        },
        {
            Name:  "Auth: customer on merchant route -> 403",
            Focus: "role gate on merchant group",
            Run: func(ctx context.Context, r *Runner) Result {
                cust, res, ok := r.mint("customer", "cust-gate", "")
                if !ok {
                    return res
                }
                status, _, err := r.do(ctx, http.MethodGet, base+"/api/merchant/orders", cust.token, nil)
                if err != nil {
                    return Result{Status: "FAIL", Note: err.Error()}
                }
                return expectStatus(status, http.StatusForbidden)
            },
        },
        {
            Name:  "Order: empty cart -> 400",
            Focus: "placement rejects an order with no items",
            Run: func(ctx context.Context, r *Runner) Result {
                cust, res, ok := r.mint("customer", "cust-empty", "")
                if !ok {
                    return res
                }
                status, _, err := r.do(ctx, http.MethodPost, base+"/api/orders", cust.token, map[string]any{
                    "restaurantName":  "Bench Kitchen",
                    "deliveryAddress": "1 Bench Road",
                    "items":           []any{},
                })
                if err != nil {
                    return Result{Status: "FAIL", Note: err.Error()}
                }
                return expectStatus(status, http.StatusBadRequest)
            },
        },
        {
            Name:  "Flow: place to settle",
            Focus: "voucher, claim, delivery, and one settlement per order",
            Run:   endToEnd,
        },
        {
            Name:  "Race: concurrent claim",
            Focus: "exactly one rider wins a ready order",
            Run:   concurrentClaim,
        },
        {
            Name:  "Perf: rider market",
            Focus: "open market listing under load",
            Run: func(ctx context.Context, r *Runner) Result {
                rider, res, ok := r.mint("rider", "rider-perf", "")
                if !ok {
                    return res
                }
                return perfLoad(ctx, r, http.MethodGet, base+"/api/rider/market", rider.token, nil)
            },
        },
    }
}

// mint issues a token for a run-scoped identity. Without a secret the case is skipped.
func (r *Runner) mint(role, name, restaurant string) (caller, Result, bool) {
    if r.cfg.JWTSecret == "" {
        return caller{}, Result{Status: "SKIP", Note: "jwt secret not configured"}, false
    }
    id := infra.Identity{
        Email:      fmt.Sprintf("%s-%s@bench.feast", name, r.run),
        Name:       name,
        Role:       role,
        Restaurant: restaurant,
    }
    token, err := infra.IssueToken(r.cfg.JWTSecret, id, time.Hour)
    if err != nil {
        return caller{}, Result{Status: "FAIL", Note: err.Error()}, false
    }
    return caller{identity: id, token: token}, Result{}, true
}

func (r *Runner) do(ctx context.Context, method, url, token string, body any) (int, []byte, error) {
    var rd io.Reader
    if body != nil {
        b, err := json.Marshal(body)
        if err != nil {
            return 0, nil, err
        }
        rd = bytes.NewReader(b)
    }
    req, err := http.NewRequestWithContext(ctx, method, url, rd)
    if err != nil {
        return 0, nil, err
    }
    if body != nil {
        req.Header.Set("Content-Type", "application/json")
    }
    if token != "" {
        req.Header.Set("Authorization", "Bearer "+token)
    }
    resp, err := r.httpc.Do(req)
    if err != nil {
        return 0, nil, err
    }
    defer resp.Body.Close()
    out, err := io.ReadAll(resp.Body)
    return resp.StatusCode, out, err
}

// call performs a request that must answer with want and decodes the body into out.
func (r *Runner) call(ctx context.Context, step, method, path string, who caller, body any, want int, out any) error {
    status, raw, err := r.do(ctx, method, r.cfg.BaseURL+path, who.token, body)
    if err != nil {
        return fmt.Errorf("%s: %w", step, err)
    }
    if status != want {
        return fmt.Errorf("%s: status=%d body=%s", step, status, strings.TrimSpace(string(raw)))
    }
    if out != nil {
        if err := json.Unmarshal(raw, out); err != nil {
            return fmt.Errorf("%s: decode: %w", step, err)
        }
    }
    return nil
}

// readyOrder registers a merchant and customer, places an order and walks it to READY_FOR_PICKUP.
func (r *Runner) readyOrder(ctx context.Context, tag string, voucher map[string]any) (merchant, customer caller, o orderView, res Result, ok bool) {
    restaurant := "Bench Kitchen " + tag + " " + r.run
    if merchant, res, ok = r.mint("merchant", "merchant-"+tag, restaurant); !ok {
        return
    }
    if customer, res, ok = r.mint("customer", "customer-"+tag, ""); !ok {
        return
    }
    ok = false
    merchantID := "m-" + tag + "-" + r.run
    steps := []func() error{
        func() error {
            return r.call(ctx, "register merchant", http.MethodPost, "/api/me/account", merchant,
                map[string]any{"merchantId": merchantID}, http.StatusCreated, nil)
        },
        func() error {
            return r.call(ctx, "register customer", http.MethodPost, "/api/me/account", customer, nil, http.StatusCreated, nil)
        },
        func() error {
            body := map[string]any{
                "restaurantName":  restaurant,
                "merchantId":      merchantID,
                "deliveryAddress": "12 Bench Street, Zone A",
                "items": []map[string]any{
                    {"name": "Set Meal", "quantity": 2, "price": "100"},
                    {"name": "Soup", "quantity": 1, "price": "100"},
                },
                "paymentMethod": "card",
            }
            if voucher != nil {
                body["voucher"] = voucher
            }
            return r.call(ctx, "place", http.MethodPost, "/api/orders", customer, body, http.StatusCreated, &o)
        },
    }
    for _, status := range []string{"ACCEPTED", "PREPARING", "READY_FOR_PICKUP"} {
        status := status
        steps = append(steps, func() error {
            return r.call(ctx, "merchant "+status, http.MethodPost, "/api/merchant/orders/"+o.ID+"/status", merchant,
                map[string]any{"status": status}, http.StatusOK, &o)
        })
    }
    for _, step := range steps {
        if err := step(); err != nil {
            res = Result{Status: "FAIL", Note: err.Error()}
            return
        }
    }
    ok = true
    return
}

func endToEnd(ctx context.Context, r *Runner) Result {
    start := time.Now()
    admin, res, ok := r.mint("admin", "admin-flow", "")
    if !ok {
        return res
    }
    rider, res, ok := r.mint("rider", "rider-flow", "")
    if !ok {
        return res
    }
    if err := r.call(ctx, "set fee", http.MethodPut, "/api/admin/config/delivery-fee", admin,
        map[string]any{"fee": "45"}, http.StatusOK, nil); err != nil {
        return Result{Status: "FAIL", Note: err.Error()}
    }
    if err := r.call(ctx, "register rider", http.MethodPost, "/api/me/account", rider, nil, http.StatusCreated, nil); err != nil {
        return Result{Status: "FAIL", Note: err.Error()}
    }

    merchant, customer, o, res, ok := r.readyOrder(ctx, "flow", map[string]any{"code": "BENCH15", "kind": "percent", "value": "15"})
    if !ok {
        return res
    }
    if !o.Total.Equal(decimal.NewFromInt(300)) || o.PointsEarned != 30 {
        return Result{Status: "FAIL", Note: fmt.Sprintf("priced total=%s points=%d", o.Total, o.PointsEarned)}
    }

    steps := []struct {
        name   string
        method string
        path   string
        who    caller
        body   any
    }{
        {"claim", http.MethodPost, "/api/rider/orders/" + o.ID + "/claim", rider, nil},
        {"pick up", http.MethodPost, "/api/rider/orders/" + o.ID + "/status", rider, map[string]any{"status": "OUT_FOR_DELIVERY"}},
        {"confirm", http.MethodPost, "/api/orders/" + o.ID + "/feedback", customer, map[string]any{"rating": 5, "comment": "hot and fast", "tip": "10"}},
        {"confirm again", http.MethodPost, "/api/orders/" + o.ID + "/feedback", customer, map[string]any{"rating": 5, "comment": "hot and fast", "tip": "10"}},
    }
    for _, s := range steps {
        if err := r.call(ctx, s.name, s.method, s.path, s.who, s.body, http.StatusOK, &o); err != nil {
            return Result{Status: "FAIL", Note: err.Error()}
        }
    }
    if o.Status != "DELIVERED" {
        return Result{Status: "FAIL", Note: "final status " + o.Status}
    }

    want := []struct {
        who      caller
        earnings int64
        points   int64
        xp       int64
    }{
        {merchant, 255, 0, 0},
        {rider, 55, 0, 0},
        {customer, 0, 30, 300},
    }
    for _, w := range want {
        var acc accountView
        if err := r.call(ctx, "account "+w.who.identity.Role, http.MethodGet, "/api/me/account", w.who, nil, http.StatusOK, &acc); err != nil {
            return Result{Status: "FAIL", Note: err.Error()}
        }
        if !acc.Earnings.Equal(decimal.NewFromInt(w.earnings)) || acc.Points != w.points || acc.XP != w.xp {
            return Result{Status: "FAIL", Note: fmt.Sprintf("%s earnings=%s points=%d xp=%d",
                w.who.identity.Role, acc.Earnings, acc.Points, acc.XP)}
        }
    }
    return Result{Status: "PASS", Latency: time.Since(start)}
}

func concurrentClaim(ctx context.Context, r *Runner) Result {
    _, _, o, res, ok := r.readyOrder(ctx, "race", nil)
    if !ok {
        return res
    }
    riders := make([]caller, r.cfg.Concurrency)
    for i := range riders {
        if riders[i], res, ok = r.mint("rider", fmt.Sprintf("rider-race-%d", i), ""); !ok {
            return res
        }
    }

    url := r.cfg.BaseURL + "/api/rider/orders/" + o.ID + "/claim"
    wg := sync.WaitGroup{}
    succ := 0
    conflicts := 0
    mu := sync.Mutex{}

    for _, rider := range riders {
        wg.Add(1)
        go func(rider caller) {
            defer wg.Done()
            status, _, err := r.do(ctx, http.MethodPost, url, rider.token, nil)
            if err != nil {
                return
            }
            mu.Lock()
            if status == http.StatusOK {
                succ++
            } else if status == http.StatusConflict {
                conflicts++
            }
            mu.Unlock()
        }(rider)
    }
    wg.Wait()

    if succ == 1 {
        return Result{Status: "PASS", Note: fmt.Sprintf("success=%d conflicts=%d", succ, conflicts)}
    }
    return Result{Status: "FAIL", Note: fmt.Sprintf("success=%d conflicts=%d", succ, conflicts)}
}

func perfLoad(ctx context.Context, r *Runner, method, url, token string, payload any) Result {
    end := time.Now().Add(r.cfg.Duration)
    var count int64
    var errCount int64
    var mu sync.Mutex
    wg := sync.WaitGroup{}

    for i := 0; i < r.cfg.Concurrency; i++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            for time.Now().Before(end) {
                status, _, err := r.do(ctx, method, url, token, payload)
                mu.Lock()
                if err != nil || status >= 500 {
                    errCount++
                } else {
                    count++
                }
                mu.Unlock()
                if ctx.Err() != nil {
                    return
                }
            }
        }()
    }
    wg.Wait()

    if count == 0 {
        return Result{Status: "FAIL", Note: "no requests completed"}
    }
    rps := float64(count) / r.cfg.Duration.Seconds()
    return Result{Status: "PASS", Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount)}
}

func expectStatus(got int, want ...int) Result {
    if contains(want, got) {
        return Result{Status: "PASS"}
    }
    return Result{Status: "FAIL", Note: fmt.Sprintf("status=%d", got)}
}

func contains(list []int, v int) bool {
    for _, i := range list {
        if i == v {
            return true
        }
    }
    return false
}

func extractTables(path string) ([]string, error) {
    b, err := os.ReadFile(path)
    if err != nil {
        return nil, err
    }
    re := regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)
    matches := re.FindAllStringSubmatch(string(b), -1)
    tables := make([]string, 0, len(matches))
    for _, m := range matches {
        tables = append(tables, m[1])
    }
    return tables, nil
}

func splitSQL(sql string) []string {
    lines := strings.Split(sql, "\n")
    filtered := make([]string, 0, len(lines))
    for _, line := range lines {
        l := strings.TrimSpace(line)
        if strings.HasPrefix(l, "--") || l == "" {
            continue
        }
        filtered = append(filtered, line)
    }
    cleaned := strings.Join(filtered, "\n")
    parts := strings.Split(cleaned, ";")
    stmts := make([]string, 0, len(parts))
    for _, p := range parts {
        s := strings.TrimSpace(p)
        if s != "" {
            stmts = append(stmts, s)
        }
    }
    return stmts
}
