package report

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wxt-client-go/internal/client"
	"wxt-client-go/internal/flow"
	"wxt-client-go/internal/session"
)

func newReportSession(t *testing.T, publicID string) *session.Store {
	t.Helper()
	storage, err := session.NewFileStorage(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)
	store, err := session.NewStore(context.Background(), storage)
	require.NoError(t, err)

	if publicID != "" {
		require.NoError(t, store.SetRecord(context.Background(), &client.TestRecord{
			PublicID:     publicID,
			BusinessType: flow.BusinessBasic,
			Mode:         client.Mode33,
		}))
	}
	return store
}

func newReportClient(t *testing.T, mux *http.ServeMux) *client.Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c, err := client.New(srv.URL, 5*time.Second)
	require.NoError(t, err)
	return c
}

func sampleRawData(aiContent string) client.ReportRawData {
	return client.ReportRawData{
		UID:  "u-1",
		Mode: client.Mode33,
		CommonScore: client.CommonScore{
			Radar: client.RadarBlock{
				Subjects:    []string{"物理", "化学"},
				InterestPct: []float64{80, 60},
				AbilityPct:  []float64{70, 65},
			},
		},
		Recommend33: &client.Recommend33{
			TopCombinations: []client.Combo33{
				{Subjects: []string{"物", "化", "生"}, Score: 0.9},
			},
		},
		AIContent: aiContent,
	}
}

func sampleAIPayload(t *testing.T) string {
	t.Helper()
	data, err := json.Marshal(client.AIReportPayload{
		CommonSection: client.CommonSection{
			ReportValidityText:  "作答质量良好",
			SubjectsSummaryText: "兴趣与能力较为一致",
		},
		FinalReport: client.FinalAIReport{
			Mode:                client.Mode33,
			StrategicConclusion: "建议物化生",
		},
	})
	require.NoError(t, err)
	return string(data)
}

func TestOrchestratorRequiresRecord(t *testing.T) {
	store := newReportSession(t, "")
	c := newReportClient(t, http.NewServeMux())
	o := NewOrchestrator(c, store, fastPaymentConfig(3))

	_, err := o.CheckEntitlement(context.Background())
	fe, ok := flow.IsFlowError(err)
	require.True(t, ok, "缺少记录应当是流程错误")
	assert.Equal(t, flow.ReasonMissingRecord, fe.Reason)

	_, err = o.Load(context.Background())
	_, ok = flow.IsFlowError(err)
	assert.True(t, ok)
}

func TestOrchestratorCheckEntitlement(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(client.APILoadCurrentPlan, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(client.PlanInfo{PlanKey: "basic", Amount: 990, HasPaid: false})
	})

	store := newReportSession(t, "pub-1")
	o := NewOrchestrator(newReportClient(t, mux), store, fastPaymentConfig(3))

	plan, err := o.CheckEntitlement(context.Background())
	require.NoError(t, err)
	assert.False(t, plan.HasPaid, "未付费状态应当如实透出")
	assert.Equal(t, "basic", plan.PlanKey)
}

func TestOrchestratorRedeemInvite(t *testing.T) {
	var redeemed bool
	mux := http.NewServeMux()
	mux.HandleFunc(client.APIInviteVerify, func(w http.ResponseWriter, r *http.Request) {
		var req client.VerifyInviteRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		if req.InviteCode == "GOOD" {
			_ = json.NewEncoder(w).Encode(client.VerifyInviteResponse{Ok: true})
			return
		}
		_ = json.NewEncoder(w).Encode(client.VerifyInviteResponse{Ok: false, Reason: client.InviteReasonUsed})
	})
	mux.HandleFunc(client.APIInviteRedeem, func(w http.ResponseWriter, r *http.Request) {
		redeemed = true
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(client.CommonResult{Ok: true})
	})

	store := newReportSession(t, "pub-2")
	o := NewOrchestrator(newReportClient(t, mux), store, fastPaymentConfig(3))

	err := o.RedeemInvite(context.Background(), "USED")
	var invErr *InviteError
	require.ErrorAs(t, err, &invErr, "校验失败应当是 InviteError")
	assert.Equal(t, client.InviteReasonUsed, invErr.Reason)
	assert.Equal(t, "邀请码已被使用", invErr.Error())
	assert.False(t, redeemed, "校验失败不应发起核销")

	require.NoError(t, o.RedeemInvite(context.Background(), "GOOD"))
	assert.True(t, redeemed)
}

func TestOrchestratorLoadWithInlineNarrative(t *testing.T) {
	ai := ""
	mux := http.NewServeMux()
	mux.HandleFunc(client.APIGenerateReport, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(sampleRawData(ai))
	})
	// 故意不注册 SSE 端点：内联文案时不应当走流式通道

	store := newReportSession(t, "pub-3")
	o := NewOrchestrator(newReportClient(t, mux), store, fastPaymentConfig(3))

	ai = sampleAIPayload(t)
	rep, err := o.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, client.Mode33, rep.Raw.Mode)
	assert.Equal(t, "建议物化生", rep.AI.FinalReport.StrategicConclusion)
}

func TestOrchestratorLoadStreamsNarrative(t *testing.T) {
	aiPayload := sampleAIPayload(t)

	mux := http.NewServeMux()
	mux.HandleFunc(client.APIGenerateReport, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(sampleRawData(""))
	})
	mux.HandleFunc(client.APISSEReportSub, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, "data: 正在撰写报告\n\n")
		flusher.Flush()
		fmt.Fprintf(w, "event: done\ndata: %s\n\n", aiPayload)
		flusher.Flush()
	})

	store := newReportSession(t, "pub-4")
	o := NewOrchestrator(newReportClient(t, mux), store, fastPaymentConfig(3))

	rep, err := o.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "作答质量良好", rep.AI.CommonSection.ReportValidityText)
	assert.NotEmpty(t, o.Progress.Lines(), "流式拉取应当留下进度日志")
}

func TestOrchestratorLoadSurfacesStreamError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(client.APIGenerateReport, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(sampleRawData(""))
	})
	mux.HandleFunc(client.APISSEReportSub, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, "event: app-error\ndata: 报告生成失败\n\n")
		flusher.Flush()
	})

	store := newReportSession(t, "pub-5")
	o := NewOrchestrator(newReportClient(t, mux), store, fastPaymentConfig(3))

	_, err := o.Load(context.Background())
	require.Error(t, err)
	assert.EqualError(t, err, "报告生成失败")
}

func TestOrchestratorFinishResetsSession(t *testing.T) {
	var finished bool
	mux := http.NewServeMux()
	mux.HandleFunc(client.APIFinishReport, func(w http.ResponseWriter, r *http.Request) {
		finished = true
		w.WriteHeader(http.StatusOK)
	})

	store := newReportSession(t, "pub-6")
	o := NewOrchestrator(newReportClient(t, mux), store, fastPaymentConfig(3))

	require.NoError(t, o.Finish(context.Background()))
	assert.True(t, finished, "应当先通知服务端归档")
	assert.Nil(t, store.Record(), "归档后本地会话应当清空")
}
