package narrationv1

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// ServiceName is the fully-qualified name of the NarrationService.
const ServiceName = "enhasa.narration.v1.NarrationService"

// Procedure paths of the NarrationService RPCs.
const (
	GenerateProcedure               = "/enhasa.narration.v1.NarrationService/Generate"
	GenerateFromTranscriptProcedure = "/enhasa.narration.v1.NarrationService/GenerateFromTranscript"
	NarrateProcedure                = "/enhasa.narration.v1.NarrationService/Narrate"
	ActiveSegmentProcedure          = "/enhasa.narration.v1.NarrationService/ActiveSegment"
	DeriveTimestampsProcedure       = "/enhasa.narration.v1.NarrationService/DeriveTimestamps"
	ListVoicesProcedure             = "/enhasa.narration.v1.NarrationService/ListVoices"
	ReleaseAudioProcedure           = "/enhasa.narration.v1.NarrationService/ReleaseAudio"
	PregenerateProcedure            = "/enhasa.narration.v1.NarrationService/Pregenerate"
)

// NarrationServiceHandler is implemented by the server.
type NarrationServiceHandler interface {
	Generate(context.Context, *connect.Request[GenerateRequest]) (*connect.Response[GenerateResponse], error)
	GenerateFromTranscript(context.Context, *connect.Request[GenerateFromTranscriptRequest]) (*connect.Response[GenerateResponse], error)
	Narrate(context.Context, *connect.Request[NarrateRequest]) (*connect.Response[NarrateResponse], error)
	ActiveSegment(context.Context, *connect.Request[ActiveSegmentRequest]) (*connect.Response[ActiveSegmentResponse], error)
	DeriveTimestamps(context.Context, *connect.Request[DeriveTimestampsRequest]) (*connect.Response[DeriveTimestampsResponse], error)
	ListVoices(context.Context, *connect.Request[ListVoicesRequest]) (*connect.Response[ListVoicesResponse], error)
	ReleaseAudio(context.Context, *connect.Request[ReleaseAudioRequest]) (*connect.Response[ReleaseAudioResponse], error)
	Pregenerate(context.Context, *connect.Request[PregenerateRequest]) (*connect.Response[PregenerateResponse], error)
}

// NewNarrationServiceHandler builds an HTTP handler for svc and returns the
// path to mount it on.
func NewNarrationServiceHandler(svc NarrationServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...)

	routes := map[string]http.Handler{
		GenerateProcedure:               connect.NewUnaryHandler(GenerateProcedure, svc.Generate, opts...),
		GenerateFromTranscriptProcedure: connect.NewUnaryHandler(GenerateFromTranscriptProcedure, svc.GenerateFromTranscript, opts...),
		NarrateProcedure:                connect.NewUnaryHandler(NarrateProcedure, svc.Narrate, opts...),
		ActiveSegmentProcedure:          connect.NewUnaryHandler(ActiveSegmentProcedure, svc.ActiveSegment, opts...),
		DeriveTimestampsProcedure:       connect.NewUnaryHandler(DeriveTimestampsProcedure, svc.DeriveTimestamps, opts...),
		ListVoicesProcedure:             connect.NewUnaryHandler(ListVoicesProcedure, svc.ListVoices, opts...),
		ReleaseAudioProcedure:           connect.NewUnaryHandler(ReleaseAudioProcedure, svc.ReleaseAudio, opts...),
		PregenerateProcedure:            connect.NewUnaryHandler(PregenerateProcedure, svc.Pregenerate, opts...),
	}

	return "/" + ServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := routes[r.URL.Path]; ok {
			h.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
	})
}

// NarrationServiceClient calls a remote NarrationService.
type NarrationServiceClient interface {
	Generate(context.Context, *connect.Request[GenerateRequest]) (*connect.Response[GenerateResponse], error)
	GenerateFromTranscript(context.Context, *connect.Request[GenerateFromTranscriptRequest]) (*connect.Response[GenerateResponse], error)
	Narrate(context.Context, *connect.Request[NarrateRequest]) (*connect.Response[NarrateResponse], error)
	ActiveSegment(context.Context, *connect.Request[ActiveSegmentRequest]) (*connect.Response[ActiveSegmentResponse], error)
	DeriveTimestamps(context.Context, *connect.Request[DeriveTimestampsRequest]) (*connect.Response[DeriveTimestampsResponse], error)
	ListVoices(context.Context, *connect.Request[ListVoicesRequest]) (*connect.Response[ListVoicesResponse], error)
	ReleaseAudio(context.Context, *connect.Request[ReleaseAudioRequest]) (*connect.Response[ReleaseAudioResponse], error)
	Pregenerate(context.Context, *connect.Request[PregenerateRequest]) (*connect.Response[PregenerateResponse], error)
}

// NewNarrationServiceClient creates a client for the service at baseURL.
func NewNarrationServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) NarrationServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(JSONCodec{})}, opts...)
	return &narrationServiceClient{
		generate:               connect.NewClient[GenerateRequest, GenerateResponse](httpClient, baseURL+GenerateProcedure, opts...),
		generateFromTranscript: connect.NewClient[GenerateFromTranscriptRequest, GenerateResponse](httpClient, baseURL+GenerateFromTranscriptProcedure, opts...),
		narrate:                connect.NewClient[NarrateRequest, NarrateResponse](httpClient, baseURL+NarrateProcedure, opts...),
		activeSegment:          connect.NewClient[ActiveSegmentRequest, ActiveSegmentResponse](httpClient, baseURL+ActiveSegmentProcedure, opts...),
		deriveTimestamps:       connect.NewClient[DeriveTimestampsRequest, DeriveTimestampsResponse](httpClient, baseURL+DeriveTimestampsProcedure, opts...),
		listVoices:             connect.NewClient[ListVoicesRequest, ListVoicesResponse](httpClient, baseURL+ListVoicesProcedure, opts...),
		releaseAudio:           connect.NewClient[ReleaseAudioRequest, ReleaseAudioResponse](httpClient, baseURL+ReleaseAudioProcedure, opts...),
		pregenerate:            connect.NewClient[PregenerateRequest, PregenerateResponse](httpClient, baseURL+PregenerateProcedure, opts...),
	}
}

type narrationServiceClient struct {
	generate               *connect.Client[GenerateRequest, GenerateResponse]
	generateFromTranscript *connect.Client[GenerateFromTranscriptRequest, GenerateResponse]
	narrate                *connect.Client[NarrateRequest, NarrateResponse]
	activeSegment          *connect.Client[ActiveSegmentRequest, ActiveSegmentResponse]
	deriveTimestamps       *connect.Client[DeriveTimestampsRequest, DeriveTimestampsResponse]
	listVoices             *connect.Client[ListVoicesRequest, ListVoicesResponse]
	releaseAudio           *connect.Client[ReleaseAudioRequest, ReleaseAudioResponse]
	pregenerate            *connect.Client[PregenerateRequest, PregenerateResponse]
}

func (c *narrationServiceClient) Generate(ctx context.Context, req *connect.Request[GenerateRequest]) (*connect.Response[GenerateResponse], error) {
	return c.generate.CallUnary(ctx, req)
}

func (c *narrationServiceClient) GenerateFromTranscript(ctx context.Context, req *connect.Request[GenerateFromTranscriptRequest]) (*connect.Response[GenerateResponse], error) {
	return c.generateFromTranscript.CallUnary(ctx, req)
}

func (c *narrationServiceClient) Narrate(ctx context.Context, req *connect.Request[NarrateRequest]) (*connect.Response[NarrateResponse], error) {
	return c.narrate.CallUnary(ctx, req)
}

func (c *narrationServiceClient) ActiveSegment(ctx context.Context, req *connect.Request[ActiveSegmentRequest]) (*connect.Response[ActiveSegmentResponse], error) {
	return c.activeSegment.CallUnary(ctx, req)
}

func (c *narrationServiceClient) DeriveTimestamps(ctx context.Context, req *connect.Request[DeriveTimestampsRequest]) (*connect.Response[DeriveTimestampsResponse], error) {
	return c.deriveTimestamps.CallUnary(ctx, req)
}

func (c *narrationServiceClient) ListVoices(ctx context.Context, req *connect.Request[ListVoicesRequest]) (*connect.Response[ListVoicesResponse], error) {
	return c.listVoices.CallUnary(ctx, req)
}

func (c *narrationServiceClient) ReleaseAudio(ctx context.Context, req *connect.Request[ReleaseAudioRequest]) (*connect.Response[ReleaseAudioResponse], error) {
	return c.releaseAudio.CallUnary(ctx, req)
}

func (c *narrationServiceClient) Pregenerate(ctx context.Context, req *connect.Request[PregenerateRequest]) (*connect.Response[PregenerateResponse], error) {
	return c.pregenerate.CallUnary(ctx, req)
}
