package sqlinline

const QInsertTemplate = `--sql 1a1b890d-9db6-4d42-8b0d-5d4064b0cc21
with
ins as (
    insert into templates (id, name, prompt, aspect_ratio, created_at, updated_at)
    values ($1::uuid, $2::text, $3::text, $4::text, $5::timestamptz, $6::timestamptz)
    returning id
),
imgs as (
    insert into template_images (template_id, image_id, rank)
    select (select id from ins), u.image_id::uuid, (u.ord - 1)::int
    from unnest($7::text[]) with ordinality as u(image_id, ord)
)
select id::text from ins;
`

// QUpdateTemplate rewrites ranks in place and trims the tail so that the
// upsert and the delete never touch the same (template_id, rank) row.
const QUpdateTemplate = `--sql 2740da8e-3699-4e5d-8bac-c55210dbdf70
with
upd as (
    update templates
    set name = $2::text,
        prompt = $3::text,
        aspect_ratio = $4::text,
        updated_at = $5::timestamptz
    where id = $1::uuid
    returning id
),
trim_tail as (
    delete from template_images
    where template_id = (select id from upd)
      and rank >= cardinality($6::text[])
),
put as (
    insert into template_images (template_id, image_id, rank)
    select (select id from upd), u.image_id::uuid, (u.ord - 1)::int
    from unnest($6::text[]) with ordinality as u(image_id, ord)
    where exists (select 1 from upd)
    on conflict (template_id, rank) do update set image_id = excluded.image_id
)
select id::text from upd;
`

const QSelectTemplateByID = `--sql 9da348a4-3adf-40de-a194-02b2dbcbb63e
select
    t.id::text,
    t.name,
    t.prompt,
    t.aspect_ratio,
    t.created_at,
    t.updated_at,
    array(
        select ti.image_id::text
        from template_images ti
        where ti.template_id = t.id
        order by ti.rank
    ) as image_ids
from templates t
where t.id = $1::uuid;
`

const QListTemplates = `--sql fc52e949-74b3-475c-a95d-5d04870fa925
select
    t.id::text,
    t.name,
    t.prompt,
    t.aspect_ratio,
    t.created_at,
    t.updated_at,
    array(
        select ti.image_id::text
        from template_images ti
        where ti.template_id = t.id
        order by ti.rank
    ) as image_ids
from templates t
order by t.created_at desc, t.seq desc
limit $1::int offset $2::int;
`

const QDeleteTemplate = `--sql fd96de91-fc10-450b-9035-559e83491688
delete from templates
where id = $1::uuid;
`
