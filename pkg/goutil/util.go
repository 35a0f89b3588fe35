package goutil

import (
	"golang.org/x/crypto/bcrypt"
)

func ContainsStr(arr []string, str string) bool {
	for _, v := range arr {
		if v == str {
			return true
		}
	}
	return false
}

func ContainsUint32(arr []uint32, i uint32) bool {
	for _, v := range arr {
		if v == i {
			return true
		}
	}
	return false
}

// UnionStr merges two string sets, preserving the order of first appearance.
func UnionStr(a, b []string) []string {
	res := make([]string, 0, len(a)+len(b))
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, arr := range [][]string{a, b} {
		for _, v := range arr {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			res = append(res, v)
		}
	}
	return res
}

// DiffStr returns the elements of a not present in b.
func DiffStr(a, b []string) []string {
	drop := make(map[string]struct{}, len(b))
	for _, v := range b {
		drop[v] = struct{}{}
	}
	res := make([]string, 0, len(a))
	for _, v := range a {
		if _, ok := drop[v]; ok {
			continue
		}
		res = append(res, v)
	}
	return res
}

func BCrypt(s string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(s), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CompareBCrypt(hash, s string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(s)) == nil
}
