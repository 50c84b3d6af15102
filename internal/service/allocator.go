package service

import (
	"path/filepath"
	"strconv"
	"strings"

	"qrcard/internal/models"
)

// AllocateFilename 生成不冲突的显示文件名：{学生名}_{分类名}{扩展名}，
// 冲突时依次尝试 _1、_2 …。ownerName 和 category 需已校验非空。
func AllocateFilename(ownerName string, category models.Category, originalName string, existing map[string]struct{}) string {
	base := ownerName + "_" + category.Label()
	ext := filepath.Ext(originalName)

	candidate := base + ext
	if !anyHasPrefix(existing, candidate) {
		return candidate
	}

	for i := 1; ; i++ {
		candidate = base + "_" + strconv.Itoa(i) + ext
		if _, taken := existing[candidate]; !taken {
			return candidate
		}
	}
}

func anyHasPrefix(names map[string]struct{}, prefix string) bool {
	if _, ok := names[prefix]; ok {
		return true
	}
	for name := range names {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// NameSet 把文件名列表转成集合
func NameSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
