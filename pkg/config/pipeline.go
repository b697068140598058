package config

// PipelineConfig holds C6 indexing-pipeline channel and worker-pool sizing.
type PipelineConfig struct {
	// ChannelBufferSize bounds each stage-to-stage channel (P1->P2->P3->P4).
	ChannelBufferSize int `yaml:"channel_buffer_size" validate:"omitempty,min=1"`

	// StorageWorkers is the fixed pool size for stage P4 (vector storage).
	StorageWorkers int `yaml:"storage_workers" validate:"omitempty,min=1"`

	// CodeEmbeddingModel and TextEmbeddingModel name the embedding models
	// used by stage P3's code and text lanes respectively.
	CodeEmbeddingModel string `yaml:"code_embedding_model"`
	TextEmbeddingModel string `yaml:"text_embedding_model"`

	// ClassSummaryLLMProvider names the LLM provider used by the
	// class-analysis lane to produce summary chunks before embedding.
	ClassSummaryLLMProvider string `yaml:"class_summary_llm_provider"`
}

// DefaultPipelineConfig returns the built-in pipeline sizing defaults.
func DefaultPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		ChannelBufferSize: 100,
		StorageWorkers:    4,
	}
}
