//go:build cgo

package embeddings

import (
	"context"
	"fmt"
	"math"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// onnx runtime environment is process-wide; initialize it once.
var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// ONNXBackend generates embeddings by running a BERT-family model
// directly through ONNX Runtime. It is used when a model file is
// provided out of band instead of downloaded by fastembed.
type ONNXBackend struct {
	session   *ort.DynamicAdvancedSession
	tokenizer *bertTokenizer
	modelName string
	dimension int
	maxLength int
	mu        sync.Mutex
}

// NewONNXBackend creates an onnx backend and loads the model.
func NewONNXBackend(cfg Config) (*ONNXBackend, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("%w: model path required for onnx provider", ErrInvalidConfig)
	}
	if cfg.TokenizerPath == "" {
		return nil, fmt.Errorf("%w: tokenizer path required for onnx provider", ErrInvalidConfig)
	}

	dimension := 384 // all-MiniLM-L6-v2 and bge-small
	maxLength := cfg.MaxLength
	if maxLength == 0 {
		maxLength = 128
	}

	ortInitOnce.Do(func() {
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return nil, fmt.Errorf("initializing onnx runtime: %w", ortInitErr)
	}

	tokenizer, err := loadBERTTokenizer(cfg.TokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("loading tokenizer: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("creating onnx session: %w", err)
	}

	return &ONNXBackend{
		session:   session,
		tokenizer: tokenizer,
		modelName: cfg.Model,
		dimension: dimension,
		maxLength: maxLength,
	}, nil
}

// Embed generates embeddings for the given texts, one inference call
// per text. Outputs are mean-pooled over attended tokens and unit
// normalized.
func (b *ONNXBackend) Embed(ctx context.Context, texts []string) (*Tensor, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	data := make([]float32, 0, len(texts)*b.dimension)
	for _, text := range texts {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		vec, err := b.embedOne(text)
		if err != nil {
			return nil, err
		}
		data = append(data, vec...)
	}

	if len(texts) == 1 {
		return &Tensor{Data: data, Dims: []int64{int64(b.dimension)}}, nil
	}
	return &Tensor{
		Data: data,
		Dims: []int64{int64(len(texts)), int64(b.dimension)},
	}, nil
}

func (b *ONNXBackend) embedOne(text string) ([]float32, error) {
	tokens := b.tokenizer.Tokenize(text)

	maxLen := b.maxLength
	inputIDs := make([]int64, maxLen)
	attentionMask := make([]int64, maxLen)
	tokenTypeIDs := make([]int64, maxLen)

	inputIDs[0] = int64(b.tokenizer.clsToken)
	attentionMask[0] = 1

	// Reserve space for [CLS] and [SEP]
	tokenLen := len(tokens)
	if tokenLen > maxLen-2 {
		tokenLen = maxLen - 2
	}
	for i := 0; i < tokenLen; i++ {
		inputIDs[i+1] = tokens[i]
		attentionMask[i+1] = 1
	}
	inputIDs[tokenLen+1] = int64(b.tokenizer.sepToken)
	attentionMask[tokenLen+1] = 1

	shape := ort.NewShape(1, int64(maxLen))
	inputIDsTensor, err := ort.NewTensor(shape, inputIDs)
	if err != nil {
		return nil, fmt.Errorf("creating input_ids tensor: %w", err)
	}
	defer inputIDsTensor.Destroy()

	attentionMaskTensor, err := ort.NewTensor(shape, attentionMask)
	if err != nil {
		return nil, fmt.Errorf("creating attention_mask tensor: %w", err)
	}
	defer attentionMaskTensor.Destroy()

	tokenTypeIDsTensor, err := ort.NewTensor(shape, tokenTypeIDs)
	if err != nil {
		return nil, fmt.Errorf("creating token_type_ids tensor: %w", err)
	}
	defer tokenTypeIDsTensor.Destroy()

	inputs := []ort.Value{inputIDsTensor, attentionMaskTensor, tokenTypeIDsTensor}
	outputs := []ort.Value{nil}
	if err := b.session.Run(inputs, outputs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	defer func() {
		for _, out := range outputs {
			if out != nil {
				out.Destroy()
			}
		}
	}()

	if len(outputs) == 0 || outputs[0] == nil {
		return nil, fmt.Errorf("%w: no output tensors returned", ErrEmbeddingFailed)
	}
	outputTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("%w: unexpected output tensor type", ErrEmbeddingFailed)
	}

	outputData := outputTensor.GetData()
	outputShape := outputTensor.GetShape()

	var embedding []float32
	switch len(outputShape) {
	case 2:
		// Already pooled
		if len(outputData) < b.dimension {
			return nil, fmt.Errorf("%w: got %d values, want %d", ErrShape, len(outputData), b.dimension)
		}
		embedding = make([]float32, b.dimension)
		copy(embedding, outputData[:b.dimension])

	case 3:
		// [batch, seq_len, hidden] needs mean pooling over attended tokens
		batchSize := outputShape[0]
		seqLen := outputShape[1]
		hiddenSize := outputShape[2]
		if batchSize != 1 {
			return nil, fmt.Errorf("%w: got batch size %d, want 1", ErrShape, batchSize)
		}
		if hiddenSize != int64(b.dimension) {
			return nil, fmt.Errorf("%w: got hidden size %d, want %d", ErrShape, hiddenSize, b.dimension)
		}

		embedding = make([]float32, b.dimension)
		attended := float32(0)
		for i := 0; i < int(seqLen) && i < maxLen; i++ {
			if attentionMask[i] == 0 {
				continue
			}
			attended++
			offset := i * int(hiddenSize)
			for j := 0; j < int(hiddenSize); j++ {
				embedding[j] += outputData[offset+j]
			}
		}
		if attended > 0 {
			for j := range embedding {
				embedding[j] /= attended
			}
		}

	default:
		return nil, fmt.Errorf("%w: unexpected output rank %d", ErrShape, len(outputShape))
	}

	return normalize(embedding), nil
}

// normalize converts an embedding to a unit vector.
func normalize(vec []float32) []float32 {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = float32(math.Sqrt(float64(norm)))
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

// ModelID identifies the loaded model.
func (b *ONNXBackend) ModelID() string {
	if b.modelName == "" {
		return "onnx"
	}
	return b.modelName
}

// Dimension returns the embedding dimension for the loaded model.
func (b *ONNXBackend) Dimension() int {
	return b.dimension
}

// Close releases ONNX resources.
func (b *ONNXBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session != nil {
		err := b.session.Destroy()
		b.session = nil
		return err
	}
	return nil
}
