package client

// ===== 插值与预测配置（客户端专用）=====
const (
	// 预测纠错阈值（世界单位）：误差小于此值时平滑纠正，大于时直接拉回
	ReconciliationSmoothThreshold = 64.0

	// 预测纠错速度（每次更新修正的比例）
	ReconciliationSmoothFactor = 0.2

	// 插值最多外推的帧数，超过后停在最新位置
	MaxExtrapolateFrames = 1
)
