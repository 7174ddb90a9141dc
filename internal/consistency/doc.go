// Package consistency validates newly generated answers against previously
// accepted answers for the same question. Choice answers must match a prior
// answer exactly; text answers are compared by lexical similarity.
package consistency
