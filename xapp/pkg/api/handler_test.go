package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/pkg/models"
	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/xapp/pkg/history"
	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/xapp/pkg/metrics"
	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/xapp/pkg/store"
)

type recordingApplier struct {
	mu        sync.Mutex
	decisions []models.ResourceDecision
	err       error
}

func (a *recordingApplier) ApplyDecision(_ context.Context, d models.ResourceDecision) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.decisions = append(a.decisions, d)
	return a.err
}

func (a *recordingApplier) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.decisions)
}

type unavailableStore struct{}

var errUnavailable = errors.New("backend unavailable")

func (unavailableStore) Get(context.Context, string) (models.FlightPlanPolicy, error) {
	return models.FlightPlanPolicy{}, errUnavailable
}
func (unavailableStore) Put(context.Context, models.FlightPlanPolicy) error { return errUnavailable }
func (unavailableStore) Delete(context.Context, string) error               { return errUnavailable }
func (unavailableStore) List(context.Context) ([]string, error)             { return nil, errUnavailable }

const (
	planCellC = `{"segments":[{"start_pos":0,"end_pos":1,"planned_cell_id":"cell-C","slice_id":"slice-embb","base_prb_quota":12}]}`
	badPlan   = `{"segments":[{"start_pos":0.8,"end_pos":0.2,"planned_cell_id":"cell-C","slice_id":"s","base_prb_quota":12}]}`
)

// indication builds a decision request where the serving cell is overloaded
// and the neighbor is 10 dB stronger
func indication(uavID, extra string) string {
	return fmt.Sprintf(`{"uav_id":%q,"position":{"x":10,"y":0,"z":50},"path_position":0.5,`+
		`"radio_snapshot":{"serving_cell_id":"cell-A","neighbor_cell_ids":["cell-B"],"rsrp_serving":-90,`+
		`"rsrp_best_neighbor":-80,"prb_utilization_serving":0.9}%s}`, uavID, extra)
}

func perform(router http.Handler, method, path, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	ExpectWithOffset(1, json.Unmarshal(w.Body.Bytes(), &out)).To(Succeed(), w.Body.String())
	return out
}

var _ = Describe("UAV policy xApp API", func() {
	var (
		router  *gin.Engine
		handler *Handler
		plans   *store.MemoryStore
		applier *recordingApplier
		m       *metrics.Metrics
		logger  *logrus.Logger
	)

	postJSON := func(path, body string) *httptest.ResponseRecorder {
		return perform(router, http.MethodPost, path, "application/json", body)
	}

	BeforeEach(func() {
		logger, _ = logtest.NewNullLogger()
		plans = store.NewMemoryStore()
		applier = &recordingApplier{}
		m = metrics.New(prometheus.NewRegistry())
		handler = NewHandler(Config{
			Store:   plans,
			History: history.New(10),
			Applier: applier,
			Metrics: m,
			Logger:  logger,
			Version: "1.2.3",
		})
		router = NewRouter(handler, RouterConfig{})
	})

	Describe("service endpoints", func() {
		It("reports health", func() {
			w := perform(router, http.MethodGet, "/health", "", "")
			Expect(w.Code).To(Equal(http.StatusOK))
			body := decode(w)
			Expect(body["status"]).To(Equal("healthy"))
			Expect(body["service"]).To(Equal(ServiceName))
			Expect(body["timestamp"]).NotTo(BeEmpty())
		})

		It("reports readiness from the flight-plan store", func() {
			Expect(perform(router, http.MethodGet, "/ready", "", "").Code).To(Equal(http.StatusOK))

			broken := NewRouter(NewHandler(Config{Store: unavailableStore{}, Logger: logger}), RouterConfig{})
			Expect(perform(broken, http.MethodGet, "/ready", "", "").Code).To(Equal(http.StatusServiceUnavailable))
		})

		It("reports the version", func() {
			body := decode(perform(router, http.MethodGet, "/version", "", ""))
			Expect(body["version"]).To(Equal("1.2.3"))
		})

		It("answers unknown endpoints and methods with JSON", func() {
			w := perform(router, http.MethodGet, "/nowhere", "", "")
			Expect(w.Code).To(Equal(http.StatusNotFound))
			Expect(decode(w)["error"]).To(Equal("Endpoint not found"))

			w = perform(router, http.MethodGet, "/e2/indication", "", "")
			Expect(w.Code).To(Equal(http.StatusMethodNotAllowed))
			Expect(decode(w)["error"]).To(Equal("Method not allowed"))
		})

		It("sets security headers", func() {
			w := perform(router, http.MethodGet, "/health", "", "")
			Expect(w.Header().Get("X-Content-Type-Options")).To(Equal("nosniff"))
		})
	})

	Describe("POST /e2/indication", func() {
		It("follows an inline flight plan when the serving cell is overloaded", func() {
			w := postJSON("/e2/indication", indication("uav-1", `,"flight_plan":`+planCellC))
			Expect(w.Code).To(Equal(http.StatusOK))

			body := decode(w)
			Expect(body["uav_id"]).To(Equal("uav-1"))
			Expect(body["target_cell_id"]).To(Equal("cell-C"))
			Expect(body["slice_id"]).To(Equal("slice-embb"))
			Expect(body["prb_quota"]).To(BeNumerically("==", 12))
			Expect(body["reason"]).To(ContainSubstring("Follow plan to cell-C"))
			Expect(body["timestamp"]).NotTo(BeEmpty())
		})

		It("falls back to the reactive rule without a plan", func() {
			body := decode(postJSON("/e2/indication", indication("uav-1", "")))
			Expect(body["target_cell_id"]).To(Equal("cell-B"))
			Expect(body["slice_id"]).To(BeNil())
			Expect(body["prb_quota"]).To(BeNumerically("==", 5))
		})

		It("uses the stored flight plan when the request carries none", func() {
			var plan models.FlightPlanPolicy
			Expect(json.Unmarshal([]byte(planCellC), &plan)).To(Succeed())
			plan.UavID = "uav-stored"
			Expect(plans.Put(context.Background(), plan)).To(Succeed())

			body := decode(postJSON("/e2/indication", indication("uav-stored", "")))
			Expect(body["target_cell_id"]).To(Equal("cell-C"))
			Expect(testutil.ToFloat64(m.FlightPlansLoaded.WithLabelValues("store"))).To(Equal(1.0))
		})

		It("ignores a malformed optional flight plan", func() {
			w := postJSON("/e2/indication", indication("uav-1", `,"flight_plan":`+badPlan))
			Expect(w.Code).To(Equal(http.StatusOK))
			body := decode(w)
			Expect(body["target_cell_id"]).To(Equal("cell-B"))
			Expect(body["reason"]).To(ContainSubstring("No active flight-plan segment"))
		})

		It("ignores a malformed path position", func() {
			body := decode(postJSON("/e2/indication",
				strings.Replace(indication("uav-1", `,"flight_plan":`+planCellC), `"path_position":0.5`, `"path_position":"far"`, 1)))
			Expect(body["reason"]).To(ContainSubstring("No active flight-plan segment"))
		})

		It("sizes the quota from an inline service profile", func() {
			svc := `,"service_profile":{"name":"video","target_bitrate_mbps":10,"min_sinr_db":-3}`
			body := decode(postJSON("/e2/indication", indication("uav-1", `,"flight_plan":`+planCellC+svc)))
			Expect(body["prb_quota"]).To(BeNumerically("==", 100))
			Expect(body["reason"]).To(ContainSubstring("below the video minimum"))
		})

		It("ignores an invalid service profile", func() {
			svc := `,"service_profile":{"name":"video","target_bitrate_mbps":0}`
			body := decode(postJSON("/e2/indication", indication("uav-1", `,"flight_plan":`+planCellC+svc)))
			Expect(body["prb_quota"]).To(BeNumerically("==", 12))
		})

		It("defaults the uav id", func() {
			body := decode(postJSON("/e2/indication", indication("", "")))
			Expect(body["uav_id"]).To(Equal("unknown"))
		})

		DescribeTable("rejects bad requests",
			func(contentType, body, message string) {
				w := perform(router, http.MethodPost, "/e2/indication", contentType, body)
				Expect(w.Code).To(Equal(http.StatusBadRequest))
				Expect(decode(w)["error"]).To(ContainSubstring(message))
			},
			Entry("wrong content type", "text/plain", indication("uav-1", ""), "Content-Type must be application/json"),
			Entry("malformed JSON", "application/json", `{"uav_id":`, "Invalid JSON format"),
			Entry("missing radio snapshot", "application/json",
				`{"uav_id":"u","position":{"x":0,"y":0,"z":0}}`, "Invalid indication data"),
			Entry("missing position", "application/json",
				`{"uav_id":"u","radio_snapshot":{"serving_cell_id":"a","rsrp_serving":1,"rsrp_best_neighbor":1,"prb_utilization_serving":0}}`,
				"Invalid indication data"),
			Entry("missing serving utilization", "application/json",
				`{"position":{"x":0,"y":0,"z":0},"radio_snapshot":{"serving_cell_id":"a","rsrp_serving":1,"rsrp_best_neighbor":1}}`,
				"prb_utilization_serving"),
			Entry("null body", "application/json", `null`, "Invalid indication data"),
		)

		It("forwards decisions to the RC applier", func() {
			postJSON("/e2/indication", indication("uav-1", ""))
			Expect(applier.count()).To(Equal(1))
			Expect(testutil.ToFloat64(m.RCForwardTotal.WithLabelValues("ok"))).To(Equal(1.0))
		})

		It("still answers when the RC applier fails", func() {
			applier.err = errors.New("rc down")
			w := postJSON("/e2/indication", indication("uav-1", ""))
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(testutil.ToFloat64(m.RCForwardTotal.WithLabelValues("error"))).To(Equal(1.0))
		})

		It("counts decisions by outcome", func() {
			postJSON("/e2/indication", indication("uav-1", ""))
			Expect(testutil.ToFloat64(m.DecisionsTotal.WithLabelValues("handover", "absent"))).To(Equal(1.0))
			Expect(testutil.ToFloat64(m.HistorySize)).To(Equal(1.0))
		})
	})

	Describe("POST /api/v1/e2/indication", func() {
		It("hands over to a clearly stronger neighbor of an overloaded cell", func() {
			w := postJSON("/api/v1/e2/indication", `{"indication_type":"periodic","ue_id":"UAV-7","cell_id":1,`+
				`"measurements":{"rsrp_serving_dbm":-100,"prb_utilization":0.9},`+
				`"neighbor_cells":[{"cell_id":2,"rsrp":-90},{"cell_id":3,"rsrp":-120}]}`)
			Expect(w.Code).To(Equal(http.StatusOK))

			body := decode(w)
			Expect(body["action"]).To(Equal(ActionHandover))
			Expect(body["target_cell_id"]).To(BeNumerically("==", 2))
			Expect(body["allocated_prbs"]).To(BeNumerically("==", 5))
		})

		It("applies simulator defaults", func() {
			body := decode(postJSON("/api/v1/e2/indication", `{}`))
			Expect(body["action"]).To(Equal(ActionPRBAllocation))
			Expect(body["target_cell_id"]).To(BeNumerically("==", 1))

			recent := handler.history.Recent(1)
			Expect(recent).To(HaveLen(1))
			Expect(recent[0].UavID).To(Equal("UAV-001"))
		})

		It("keeps string cell ids as strings", func() {
			body := decode(postJSON("/api/v1/e2/indication", `{"cell_id":"gnb-1a"}`))
			Expect(body["target_cell_id"]).To(Equal("gnb-1a"))
		})
	})

	Describe("decision history", func() {
		BeforeEach(func() {
			for _, id := range []string{"uav-1", "uav-2", "uav-3", "uav-1"} {
				Expect(postJSON("/e2/indication", indication(id, "")).Code).To(Equal(http.StatusOK))
			}
		})

		It("returns the newest decisions first", func() {
			body := decode(perform(router, http.MethodGet, "/decisions?limit=2", "", ""))
			Expect(body["count"]).To(BeNumerically("==", 2))
			decisions := body["decisions"].([]interface{})
			Expect(decisions[0].(map[string]interface{})["uav_id"]).To(Equal("uav-1"))
			Expect(decisions[1].(map[string]interface{})["uav_id"]).To(Equal("uav-3"))
			Expect(decisions[0].(map[string]interface{})["id"]).NotTo(BeEmpty())
		})

		It("clamps the limit", func() {
			Expect(decode(perform(router, http.MethodGet, "/decisions?limit=0", "", ""))["count"]).To(BeNumerically("==", 1))
			Expect(decode(perform(router, http.MethodGet, "/decisions?limit=5000", "", ""))["count"]).To(BeNumerically("==", 4))
			Expect(decode(perform(router, http.MethodGet, "/decisions", "", ""))["count"]).To(BeNumerically("==", 4))
			Expect(perform(router, http.MethodGet, "/decisions?limit=abc", "", "").Code).To(Equal(http.StatusBadRequest))
		})

		It("summarizes the history", func() {
			body := decode(perform(router, http.MethodGet, "/stats", "", ""))
			Expect(body["total_decisions"]).To(BeNumerically("==", 4))
			Expect(body["unique_uavs"]).To(BeNumerically("==", 3))
			Expect(body["uav_list"]).To(Equal([]interface{}{"uav-1", "uav-2", "uav-3"}))
		})
	})

	Describe("flight plan provisioning", func() {
		It("stores, lists, reads and deletes a plan", func() {
			w := perform(router, http.MethodPut, "/api/v1/flightplans/uav-9", "application/json", planCellC)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(decode(w)["uav_id"]).To(Equal("uav-9"))

			list := decode(perform(router, http.MethodGet, "/api/v1/flightplans", "", ""))
			Expect(list["uav_ids"]).To(Equal([]interface{}{"uav-9"}))

			got := decode(perform(router, http.MethodGet, "/api/v1/flightplans/uav-9", "", ""))
			Expect(got["segments"]).To(HaveLen(1))

			Expect(perform(router, http.MethodDelete, "/api/v1/flightplans/uav-9", "", "").Code).
				To(Equal(http.StatusNoContent))
			Expect(perform(router, http.MethodGet, "/api/v1/flightplans/uav-9", "", "").Code).
				To(Equal(http.StatusNotFound))
			Expect(perform(router, http.MethodDelete, "/api/v1/flightplans/uav-9", "", "").Code).
				To(Equal(http.StatusNotFound))
		})

		It("rejects a plan for another UAV", func() {
			w := perform(router, http.MethodPut, "/api/v1/flightplans/uav-9", "application/json",
				`{"uav_id":"uav-8","segments":[]}`)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("rejects invalid segments", func() {
			w := perform(router, http.MethodPut, "/api/v1/flightplans/uav-9", "application/json", badPlan)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(decode(w)["code"]).To(Equal("INVALID_INPUT"))
		})

		It("maps backend failures to 500", func() {
			broken := NewRouter(NewHandler(Config{Store: unavailableStore{}, Logger: logger}), RouterConfig{})
			Expect(perform(broken, http.MethodGet, "/api/v1/flightplans", "", "").Code).
				To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("rate limiting", func() {
		It("rejects requests beyond the burst", func() {
			limited := NewRouter(handler, RouterConfig{RateLimitRPS: 0.001, RateLimitBurst: 1})
			Expect(perform(limited, http.MethodGet, "/health", "", "").Code).To(Equal(http.StatusOK))
			Expect(perform(limited, http.MethodGet, "/health", "", "").Code).To(Equal(http.StatusTooManyRequests))
		})
	})

	Describe("decision stream", func() {
		It("pushes decisions of the subscribed UAV", func() {
			server := httptest.NewServer(router)
			defer server.Close()

			url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/decisions/stream?uav_id=uav-ws"
			conn, _, err := websocket.DefaultDialer.Dial(url, nil)
			Expect(err).NotTo(HaveOccurred())

			Eventually(handler.Hub().Count).Should(Equal(1))
			Expect(testutil.ToFloat64(m.StreamSubscribers)).To(Equal(1.0))

			for _, id := range []string{"uav-other", "uav-ws"} {
				resp, err := http.Post(server.URL+"/e2/indication", "application/json",
					strings.NewReader(indication(id, "")))
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
			}

			Expect(conn.SetReadDeadline(time.Now().Add(5 * time.Second))).To(Succeed())
			var rec history.Record
			Expect(conn.ReadJSON(&rec)).To(Succeed())
			Expect(rec.UavID).To(Equal("uav-ws"))
			Expect(rec.TargetCellID).To(Equal("cell-B"))

			Expect(conn.Close()).To(Succeed())
			Eventually(handler.Hub().Count, 5*time.Second).Should(Equal(0))
		})
	})
})
