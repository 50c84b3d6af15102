package models

// Category 文件分类
type Category string

const (
	CategoryNone   Category = ""
	CategorySelf   Category = "self"
	CategoryFamily Category = "family"
	CategoryCareer Category = "career"
)

var categoryLabels = map[Category]string{
	CategorySelf:   "自我介绍",
	CategoryFamily: "家庭介绍",
	CategoryCareer: "职业介绍",
}

// AllCategories 返回全部分类，顺序固定
func AllCategories() []Category {
	return []Category{CategorySelf, CategoryFamily, CategoryCareer}
}

// Label 分类的显示名称，未分类（旧数据）返回空串
func (c Category) Label() string {
	return categoryLabels[c]
}

// Valid 是否为已知分类
func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// ParseCategory 解析分类，同时接受分类键和显示名称
func ParseCategory(s string) (Category, bool) {
	c := Category(s)
	if c.Valid() {
		return c, true
	}
	for k, label := range categoryLabels {
		if label == s {
			return k, true
		}
	}
	return CategoryNone, false
}
