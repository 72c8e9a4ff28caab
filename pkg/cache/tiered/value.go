package tiered

// nullSentinel 是存入 L2 代表"已确认不存在"的占位字符串，
// 用于防止缓存穿透（避免对永久缺失的 key 反复回源）。
const nullSentinel = "@@TIERED_CACHE_NULL_VALUE@@"

// Wrapper 包装一次查找的结果：区分"键不存在"与"键存在但值为 nil（穿透占位）"。
//
// Present=false 表示两级缓存均未命中（调用方应视为"绝对缺失"）。
// Present=true 且 Value=nil 表示命中了穿透占位，代表源头已确认无此数据。
type Wrapper struct {
	Value   any
	Present bool
}

// Absent 返回表示未命中的 Wrapper。
func Absent() Wrapper {
	return Wrapper{}
}

// Of 返回包装给定值的 Wrapper；value 为 nil 时等价于穿透占位的命中结果。
func Of(value any) Wrapper {
	return Wrapper{Value: value, Present: true}
}

// IsNull 返回该 Wrapper 是否命中但值为 nil（即穿透占位）。
func (w Wrapper) IsNull() bool {
	return w.Present && w.Value == nil
}

// entry 是 L1 存储的内部形态：应用值或穿透占位标记。
// 与 Wrapper 的区别仅在于 entry 不表达"绝对缺失"——L1 中压根不存在该 key 即表达缺失。
type entry struct {
	value  any
	isNull bool
}

func entryFromValue(value any) entry {
	if value == nil {
		return entry{isNull: true}
	}
	return entry{value: value}
}

func (e entry) wrapper() Wrapper {
	if e.isNull {
		return Of(nil)
	}
	return Of(e.value)
}
