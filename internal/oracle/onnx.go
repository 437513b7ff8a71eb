package oracle

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/ayusman/mudra/internal/feature"
	"github.com/ayusman/mudra/internal/window"
)

// Tensor names baked into the exported gesture model.
const (
	inputSeqName   = "input_seq"
	inputMaskName  = "input_mask"
	outputLogits   = "logits"
	outputConfName = "confidence"
)

// Config describes an exported ONNX gesture model.
type Config struct {
	// ModelPath is the .onnx file exported from the trained checkpoint.
	ModelPath string
	// LibraryPath optionally points at the onnxruntime shared library.
	// Empty means the platform default lookup.
	LibraryPath string

	FeatureDim int
	MaxLen     int
	NumClasses int
}

// ONNX runs the exported gesture classifier through ONNX Runtime.
type ONNX struct {
	session *ort.DynamicAdvancedSession
	config  Config
}

// NewONNX loads the model and prepares an inference session. The runtime
// environment is initialized on first use and torn down by Close.
func NewONNX(config Config) (*ONNX, error) {
	if config.FeatureDim <= 0 || config.MaxLen <= 0 || config.NumClasses <= 0 {
		return nil, fmt.Errorf("invalid model dimensions: feature_dim=%d max_len=%d num_classes=%d",
			config.FeatureDim, config.MaxLen, config.NumClasses)
	}

	if config.LibraryPath != "" {
		ort.SetSharedLibraryPath(config.LibraryPath)
	}

	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnxruntime: %w", err)
		}
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create session options: %w", err)
	}
	defer opts.Destroy()

	if err := opts.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableAll); err != nil {
		return nil, fmt.Errorf("set graph optimization: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(
		config.ModelPath,
		[]string{inputSeqName, inputMaskName},
		[]string{outputLogits, outputConfName},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", config.ModelPath, err)
	}

	return &ONNX{session: session, config: config}, nil
}

// Infer runs one window through the model. The logits output is converted to
// a probability distribution here; the model itself emits raw scores.
func (o *ONNX) Infer(seq []feature.Vector, mask []float32) (Result, error) {
	if len(seq) != o.config.MaxLen || len(mask) != o.config.MaxLen {
		return Result{}, fmt.Errorf("sequence length %d (mask %d), model expects %d",
			len(seq), len(mask), o.config.MaxLen)
	}

	flat := window.Flatten(seq)
	if len(flat) != o.config.MaxLen*o.config.FeatureDim {
		return Result{}, fmt.Errorf("flattened sequence has %d values, model expects %d",
			len(flat), o.config.MaxLen*o.config.FeatureDim)
	}

	seqTensor, err := ort.NewTensor(
		ort.NewShape(1, int64(o.config.MaxLen), int64(o.config.FeatureDim)), flat)
	if err != nil {
		return Result{}, fmt.Errorf("create sequence tensor: %w", err)
	}
	defer seqTensor.Destroy()

	maskTensor, err := ort.NewTensor(ort.NewShape(1, int64(o.config.MaxLen)), mask)
	if err != nil {
		return Result{}, fmt.Errorf("create mask tensor: %w", err)
	}
	defer maskTensor.Destroy()

	outputs := make([]ort.Value, 2)
	if err := o.session.Run([]ort.Value{seqTensor, maskTensor}, outputs); err != nil {
		return Result{}, fmt.Errorf("inference failed: %w", err)
	}
	defer func() {
		for _, out := range outputs {
			if out != nil {
				out.Destroy()
			}
		}
	}()

	logitsTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return Result{}, fmt.Errorf("logits output is not a float32 tensor")
	}
	confTensor, ok := outputs[1].(*ort.Tensor[float32])
	if !ok {
		return Result{}, fmt.Errorf("confidence output is not a float32 tensor")
	}

	logits := logitsTensor.GetData()
	if len(logits) != o.config.NumClasses {
		return Result{}, fmt.Errorf("model returned %d logits, expected %d classes",
			len(logits), o.config.NumClasses)
	}

	confData := confTensor.GetData()
	if len(confData) == 0 {
		return Result{}, fmt.Errorf("model returned empty confidence output")
	}

	// Copy out of tensor memory before the deferred Destroy runs.
	return Result{
		Probabilities: Softmax(logits),
		Confidence:    ClampConfidence(confData[0]),
	}, nil
}

// Close destroys the session and tears down the runtime environment.
func (o *ONNX) Close() error {
	if o.session != nil {
		o.session.Destroy()
		o.session = nil
	}
	ort.DestroyEnvironment()
	return nil
}
