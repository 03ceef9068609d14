package client

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// LerpClock 根据最近一帧到达的时间计算插值系数
type LerpClock struct {
	frameDuration time.Duration
	frameTime     time.Time
	serverFrame   int32
}

// NewLerpClock 创建插值时钟，frameRate 为服务器帧率
func NewLerpClock(frameRate int) *LerpClock {
	if frameRate <= 0 {
		frameRate = 40
	}
	return &LerpClock{frameDuration: time.Second / time.Duration(frameRate)}
}

// FrameArrived 记录新帧到达，同一帧重复调用不重置时间
func (c *LerpClock) FrameArrived(serverFrame int32, now time.Time) {
	if serverFrame == c.serverFrame && !c.frameTime.IsZero() {
		return
	}
	c.serverFrame = serverFrame
	c.frameTime = now
}

// Fraction 返回 [0, 1] 的插值系数：刚到达时为 0，经过一帧时长后为 1
func (c *LerpClock) Fraction(now time.Time) float32 {
	if c.frameTime.IsZero() {
		return 1
	}
	frac := float32(now.Sub(c.frameTime)) / float32(c.frameDuration)
	return mgl32.Clamp(frac, 0, MaxExtrapolateFrames)
}

// Reconcile 用服务器位置纠正预测位置
// 误差较小时按比例逼近，较大时直接采用服务器位置
func Reconcile(predicted, server mgl32.Vec3) mgl32.Vec3 {
	diff := server.Sub(predicted)
	if diff.Len() > ReconciliationSmoothThreshold {
		return server
	}
	return predicted.Add(diff.Mul(ReconciliationSmoothFactor))
}
