package game

import "fmt"

// PickRandom 均匀地从序列中选取一个元素
func PickRandom[T any](rt Runtime, seq []T) (T, error) {
	var zero T
	if len(seq) == 0 {
		return zero, fmt.Errorf("随机选取失败: %w", ErrEmptyInput)
	}

	return seq[rt.intN(len(seq))], nil
}

// ShuffleArray 返回一个新的随机排列（Fisher–Yates），不修改输入
func ShuffleArray[T any](rt Runtime, seq []T) []T {
	shuffled := append([]T(nil), seq...)

	for i := len(shuffled) - 1; i > 0; i-- {
		j := rt.intN(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	return shuffled
}

// SeededRandom 把种子确定性地映射到 [0,1)
// 多个客户端用同一份记录里的种子各自计算，必须得到相同结果，
// 因此只用整数运算（splitmix64），不依赖平台的浮点实现
func SeededRandom(seed int64) float64 {
	z := uint64(seed) + 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	z ^= z >> 31

	return float64(z>>11) / (1 << 53)
}
